package domain

import (
	"errors"
	"strings"
	"time"
)

// ModelArtifact is a trained model file pulled out of the outputs bucket and
// repackaged for registry upload. Both paths are plain local files.
type ModelArtifact struct {
	JobID       string
	SourceKey   string
	LocalPath   string
	PackagePath string
	SizeBytes   int64
}

func (a ModelArtifact) Validate() error {
	if strings.TrimSpace(a.JobID) == "" {
		return errors.New("artifact job id is required")
	}
	if strings.TrimSpace(a.SourceKey) == "" {
		return errors.New("artifact source key is required")
	}
	if strings.TrimSpace(a.PackagePath) == "" {
		return errors.New("artifact package path is required")
	}
	return nil
}

// RegisteredModel is a model stored in the platform registry. Immutable once
// stored; referenced by id.
type RegisteredModel struct {
	ID               string
	Name             string
	Type             string
	SoftwareSpecName string
	CreatedAt        time.Time
}

func (m RegisteredModel) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("model id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("model name is required")
	}
	if strings.TrimSpace(m.Type) == "" {
		return errors.New("model type is required")
	}
	return nil
}
