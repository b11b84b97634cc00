package mlplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// SoftwareSpec names the runtime a definition or model executes under.
type SoftwareSpec struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type definitionRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Command      string       `json:"command"`
	SoftwareSpec SoftwareSpec `json:"software_spec"`
}

type definitionDetail struct {
	Metadata struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		SpaceID   string    `json:"space_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
	Entity struct {
		Description  string       `json:"description"`
		Command      string       `json:"command"`
		SoftwareSpec SoftwareSpec `json:"software_spec"`
	} `json:"entity"`
}

func (d definitionDetail) toDomain() domain.TrainingDefinition {
	return domain.TrainingDefinition{
		ID:               d.Metadata.ID,
		Name:             d.Metadata.Name,
		Description:      d.Entity.Description,
		Command:          d.Entity.Command,
		Framework:        d.Entity.SoftwareSpec.Name,
		FrameworkVersion: d.Entity.SoftwareSpec.Version,
		SpaceID:          d.Metadata.SpaceID,
		CreatedAt:        d.Metadata.CreatedAt,
	}
}

// StoreDefinition registers a training definition and returns it with the
// platform-assigned id.
func (c *Client) StoreDefinition(ctx context.Context, def domain.TrainingDefinition) (domain.TrainingDefinition, error) {
	if err := def.Validate(); err != nil {
		return domain.TrainingDefinition{}, err
	}
	req := definitionRequest{
		Name:        def.Name,
		Description: def.Description,
		Command:     def.Command,
		SoftwareSpec: SoftwareSpec{
			Name:    def.Framework,
			Version: def.FrameworkVersion,
		},
	}
	var detail definitionDetail
	if err := c.doJSON(ctx, http.MethodPost, "/v4/training_definitions", nil, req, &detail); err != nil {
		return domain.TrainingDefinition{}, fmt.Errorf("store definition: %w", err)
	}
	return detail.toDomain(), nil
}

// GetDefinition fetches a definition by id.
func (c *Client) GetDefinition(ctx context.Context, definitionID string) (domain.TrainingDefinition, error) {
	var detail definitionDetail
	path := "/v4/training_definitions/" + url.PathEscape(definitionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return domain.TrainingDefinition{}, fmt.Errorf("get definition %s: %w", definitionID, err)
	}
	return detail.toDomain(), nil
}

// ListDefinitions returns the definitions stored in the selected space.
func (c *Client) ListDefinitions(ctx context.Context) ([]domain.TrainingDefinition, error) {
	var page struct {
		Resources []definitionDetail `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v4/training_definitions", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	out := make([]domain.TrainingDefinition, 0, len(page.Resources))
	for _, r := range page.Resources {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetDefinitionID resolves a definition by name. The platform does not
// enforce unique names; the first match wins.
func (c *Client) GetDefinitionID(ctx context.Context, name string) (string, error) {
	defs, err := c.ListDefinitions(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range defs {
		if d.Name == name {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("definition %q: %w", name, ErrNotFound)
}
