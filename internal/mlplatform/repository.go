package mlplatform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// ModelRequest describes the metadata stored with a model in the registry.
type ModelRequest struct {
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	SoftwareSpec SoftwareSpec `json:"software_spec"`
	TrainingID   string       `json:"training_id,omitempty"`
}

type modelDetail struct {
	Metadata struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
	Entity struct {
		Type         string       `json:"type"`
		SoftwareSpec SoftwareSpec `json:"software_spec"`
	} `json:"entity"`
}

func (d modelDetail) toDomain() domain.RegisteredModel {
	return domain.RegisteredModel{
		ID:               d.Metadata.ID,
		Name:             d.Metadata.Name,
		Type:             d.Entity.Type,
		SoftwareSpecName: d.Entity.SoftwareSpec.Name,
		CreatedAt:        d.Metadata.CreatedAt,
	}
}

// StoreModel registers model metadata and uploads the packaged artifact as
// the model content. The artifact must be the registry's archive form.
func (c *Client) StoreModel(ctx context.Context, req ModelRequest, packagePath string) (domain.RegisteredModel, error) {
	if req.Name == "" {
		return domain.RegisteredModel{}, fmt.Errorf("model name is required")
	}
	if req.Type == "" {
		return domain.RegisteredModel{}, fmt.Errorf("model type is required")
	}

	var detail modelDetail
	if err := c.doJSON(ctx, http.MethodPost, "/v4/models", nil, req, &detail); err != nil {
		return domain.RegisteredModel{}, fmt.Errorf("store model: %w", err)
	}
	model := detail.toDomain()

	if err := c.uploadModelContent(ctx, model.ID, packagePath); err != nil {
		return domain.RegisteredModel{}, err
	}
	return model, nil
}

func (c *Client) uploadModelContent(ctx context.Context, modelID, packagePath string) error {
	f, err := os.Open(packagePath)
	if err != nil {
		return fmt.Errorf("open model package: %w", err)
	}
	defer func() { _ = f.Close() }()

	path := "/v4/models/" + url.PathEscape(modelID) + "/content"
	resp, err := c.do(ctx, http.MethodPut, path, nil, f, "application/gzip")
	if err != nil {
		return fmt.Errorf("upload model content %s: %w", modelID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GetModel fetches registered model details by id.
func (c *Client) GetModel(ctx context.Context, modelID string) (domain.RegisteredModel, error) {
	var detail modelDetail
	path := "/v4/models/" + url.PathEscape(modelID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return domain.RegisteredModel{}, fmt.Errorf("get model %s: %w", modelID, err)
	}
	return detail.toDomain(), nil
}

// ListModels returns the models registered in the selected space.
func (c *Client) ListModels(ctx context.Context) ([]domain.RegisteredModel, error) {
	var page struct {
		Resources []modelDetail `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v4/models", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]domain.RegisteredModel, 0, len(page.Resources))
	for _, r := range page.Resources {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetModelID resolves a registered model by name, first match wins.
func (c *Client) GetModelID(ctx context.Context, name string) (string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if m.Name == name {
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("model %q: %w", name, ErrNotFound)
}
