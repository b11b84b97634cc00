package mlplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// DeploymentRequest provisions an online scoring endpoint for a model.
type DeploymentRequest struct {
	Name    string `json:"name"`
	ModelID string `json:"model_id"`
	Online  bool   `json:"online"`
}

type deploymentDetail struct {
	Metadata struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
	Entity struct {
		ModelID string `json:"model_id"`
		Status  struct {
			State      string `json:"state"`
			ScoringURL string `json:"scoring_url"`
		} `json:"status"`
	} `json:"entity"`
}

func (d deploymentDetail) toDomain() (domain.Deployment, error) {
	state, err := domain.ParseDeploymentState(d.Entity.Status.State)
	if err != nil {
		return domain.Deployment{}, err
	}
	return domain.Deployment{
		ID:         d.Metadata.ID,
		ModelID:    d.Entity.ModelID,
		Name:       d.Metadata.Name,
		State:      state,
		ScoringURL: d.Entity.Status.ScoringURL,
		CreatedAt:  d.Metadata.CreatedAt,
	}, nil
}

// CreateDeployment provisions an online endpoint; the returned deployment is
// typically still initializing.
func (c *Client) CreateDeployment(ctx context.Context, req DeploymentRequest) (domain.Deployment, error) {
	if req.Name == "" {
		return domain.Deployment{}, fmt.Errorf("deployment name is required")
	}
	if req.ModelID == "" {
		return domain.Deployment{}, fmt.Errorf("deployment model id is required")
	}
	req.Online = true

	var detail deploymentDetail
	if err := c.doJSON(ctx, http.MethodPost, "/v4/deployments", nil, req, &detail); err != nil {
		return domain.Deployment{}, fmt.Errorf("create deployment: %w", err)
	}
	dep, err := detail.toDomain()
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("create deployment: %w", err)
	}
	return dep, nil
}

// GetDeployment fetches deployment details by id.
func (c *Client) GetDeployment(ctx context.Context, deploymentID string) (domain.Deployment, error) {
	var detail deploymentDetail
	path := "/v4/deployments/" + url.PathEscape(deploymentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return domain.Deployment{}, fmt.Errorf("get deployment %s: %w", deploymentID, err)
	}
	dep, err := detail.toDomain()
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("get deployment %s: %w", deploymentID, err)
	}
	return dep, nil
}

// ListDeployments returns the deployments in the selected space.
func (c *Client) ListDeployments(ctx context.Context) ([]domain.Deployment, error) {
	var page struct {
		Resources []deploymentDetail `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v4/deployments", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	out := make([]domain.Deployment, 0, len(page.Resources))
	for _, r := range page.Resources {
		dep, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("list deployments: %w", err)
		}
		out = append(out, dep)
	}
	return out, nil
}

// GetDeploymentID resolves a deployment by name, first match wins.
func (c *Client) GetDeploymentID(ctx context.Context, name string) (string, error) {
	deps, err := c.ListDeployments(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range deps {
		if d.Name == name {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("deployment %q: %w", name, ErrNotFound)
}

// DeleteDeployment tears down an online endpoint.
func (c *Client) DeleteDeployment(ctx context.Context, deploymentID string) error {
	path := "/v4/deployments/" + url.PathEscape(deploymentID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete deployment %s: %w", deploymentID, err)
	}
	return nil
}

// ScoringRequest carries named input fields, each a list of numeric vectors.
type ScoringRequest struct {
	InputData []ScoringInput `json:"input_data"`
}

// ScoringInput is one named input field.
type ScoringInput struct {
	Name   string      `json:"name,omitempty"`
	Values [][]float64 `json:"values"`
}

// Prediction is the platform's per-input result row. The probability vector
// appears under both "prediction" and "probability"; that duplication is the
// platform's response format, preserved as-is.
type Prediction struct {
	Prediction        []float64 `json:"prediction"`
	PredictionClasses int       `json:"prediction_classes"`
	Probability       []float64 `json:"probability"`
}

// ScoringResponse holds one Prediction per input vector, in input order.
type ScoringResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Score submits inference inputs to a ready deployment. The Nth input
// vector's prediction comes back at position N.
func (c *Client) Score(ctx context.Context, deploymentID string, req ScoringRequest) (ScoringResponse, error) {
	if len(req.InputData) == 0 {
		return ScoringResponse{}, fmt.Errorf("scoring input is required")
	}
	var resp ScoringResponse
	path := "/v4/deployments/" + url.PathEscape(deploymentID) + "/predictions"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return ScoringResponse{}, fmt.Errorf("score deployment %s: %w", deploymentID, err)
	}
	return resp, nil
}
