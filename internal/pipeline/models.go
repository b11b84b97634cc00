package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
)

// RegistryAPI is the slice of the platform client the publish stage uses.
type RegistryAPI interface {
	StoreModel(ctx context.Context, req mlplatform.ModelRequest, packagePath string) (domain.RegisteredModel, error)
}

// ModelPublisher uploads the packaged artifact with its metadata to the
// model registry.
type ModelPublisher struct {
	registry  RegistryAPI
	name      string
	modelType string
	software  mlplatform.SoftwareSpec
	logger    *slog.Logger
}

func NewModelPublisher(registry RegistryAPI, name, modelType string, software mlplatform.SoftwareSpec, logger *slog.Logger) (*ModelPublisher, error) {
	if registry == nil {
		return nil, errors.New("registry api is required")
	}
	if name == "" {
		return nil, errors.New("model name is required")
	}
	if modelType == "" {
		return nil, errors.New("model type is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelPublisher{
		registry:  registry,
		name:      name,
		modelType: modelType,
		software:  software,
		logger:    logger,
	}, nil
}

func (p *ModelPublisher) Publish(ctx context.Context, artifact domain.ModelArtifact) (domain.RegisteredModel, error) {
	if err := artifact.Validate(); err != nil {
		return domain.RegisteredModel{}, err
	}
	req := mlplatform.ModelRequest{
		Name:         p.name,
		Type:         p.modelType,
		SoftwareSpec: p.software,
		TrainingID:   artifact.JobID,
	}
	model, err := p.registry.StoreModel(ctx, req, artifact.PackagePath)
	if err != nil {
		return domain.RegisteredModel{}, fmt.Errorf("publish model: %w", err)
	}
	if model.ID == "" {
		return domain.RegisteredModel{}, errors.New("registry returned model without id")
	}
	p.logger.Info("model published", "model_id", model.ID, "name", model.Name, "type", model.Type)
	return model, nil
}
