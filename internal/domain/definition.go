package domain

import (
	"errors"
	"strings"
	"time"
)

// TrainingDefinition describes a training entry point. It is registered once
// with the platform and referenced by id afterwards; the platform assigns ID.
type TrainingDefinition struct {
	ID          string
	Name        string
	Description string
	// Command is the entry command the platform runs inside the training
	// runtime, e.g. "python3 train.py --epochs 5".
	Command          string
	Framework        string
	FrameworkVersion string
	Runtime          string
	SpaceID          string
	CreatedAt        time.Time
}

func (d TrainingDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("definition name is required")
	}
	if strings.TrimSpace(d.Command) == "" {
		return errors.New("definition command is required")
	}
	if strings.TrimSpace(d.Framework) == "" {
		return errors.New("definition framework is required")
	}
	if strings.TrimSpace(d.FrameworkVersion) == "" {
		return errors.New("definition framework version is required")
	}
	return nil
}
