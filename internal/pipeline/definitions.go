package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// DefinitionAPI is the slice of the platform client the definition stage uses.
type DefinitionAPI interface {
	StoreDefinition(ctx context.Context, def domain.TrainingDefinition) (domain.TrainingDefinition, error)
}

// DefinitionPublisher registers the training definition and hands back the
// platform-assigned id for the training stage.
type DefinitionPublisher struct {
	api    DefinitionAPI
	logger *slog.Logger
}

func NewDefinitionPublisher(api DefinitionAPI, logger *slog.Logger) (*DefinitionPublisher, error) {
	if api == nil {
		return nil, errors.New("definition api is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefinitionPublisher{api: api, logger: logger}, nil
}

func (p *DefinitionPublisher) Publish(ctx context.Context, def domain.TrainingDefinition) (domain.TrainingDefinition, error) {
	if err := def.Validate(); err != nil {
		return domain.TrainingDefinition{}, err
	}
	stored, err := p.api.StoreDefinition(ctx, def)
	if err != nil {
		return domain.TrainingDefinition{}, fmt.Errorf("publish definition: %w", err)
	}
	if stored.ID == "" {
		return domain.TrainingDefinition{}, errors.New("platform returned definition without id")
	}
	p.logger.Info("definition published", "definition_id", stored.ID, "name", stored.Name)
	return stored, nil
}
