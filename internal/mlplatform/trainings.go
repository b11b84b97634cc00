package mlplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// StorageConnection carries the object-store credentials the platform uses
// to read training input and write training output.
type StorageConnection struct {
	EndpointURL     string `json:"endpoint_url"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// StorageLocation addresses input data or an output prefix inside a bucket.
type StorageLocation struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path,omitempty"`
}

// DataReference binds a connection to a location.
type DataReference struct {
	Connection StorageConnection `json:"connection"`
	Location   StorageLocation   `json:"location"`
}

// HardwareSpec sizes the training runtime.
type HardwareSpec struct {
	Name  string `json:"name"`
	Nodes int    `json:"nodes,omitempty"`
}

// TrainingRequest submits a run of a stored definition.
type TrainingRequest struct {
	DefinitionID     string        `json:"definition_id"`
	InputData        DataReference `json:"input_data_reference"`
	ResultsReference DataReference `json:"results_reference"`
	HardwareSpec     HardwareSpec  `json:"hardware_spec"`
}

func (r TrainingRequest) validate() error {
	if r.DefinitionID == "" {
		return fmt.Errorf("definition id is required")
	}
	if r.InputData.Location.Bucket == "" {
		return fmt.Errorf("input bucket is required")
	}
	if r.ResultsReference.Location.Bucket == "" {
		return fmt.Errorf("results bucket is required")
	}
	return nil
}

type trainingDetail struct {
	Metadata struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
	Entity struct {
		DefinitionID string `json:"definition_id"`
		Status       struct {
			State   string `json:"state"`
			Message string `json:"message"`
		} `json:"status"`
		ResultsReference struct {
			Location struct {
				Bucket string `json:"bucket"`
				Path   string `json:"path"`
				Logs   string `json:"logs"`
			} `json:"location"`
		} `json:"results_reference"`
	} `json:"entity"`
}

func (d trainingDetail) toDomain() (domain.TrainingJob, error) {
	state, err := domain.ParseJobState(d.Entity.Status.State)
	if err != nil {
		return domain.TrainingJob{}, err
	}
	// The declared logs token is the key fragment produced artifacts carry;
	// fall back to the results path when the platform omits it.
	token := d.Entity.ResultsReference.Location.Logs
	if token == "" {
		token = d.Entity.ResultsReference.Location.Path
	}
	return domain.TrainingJob{
		ID:           d.Metadata.ID,
		DefinitionID: d.Entity.DefinitionID,
		State:        state,
		ResultsToken: token,
		Message:      d.Entity.Status.Message,
		SubmittedAt:  d.Metadata.CreatedAt,
	}, nil
}

// RunTraining submits a training job and returns its handle.
func (c *Client) RunTraining(ctx context.Context, req TrainingRequest) (domain.TrainingJob, error) {
	if err := req.validate(); err != nil {
		return domain.TrainingJob{}, err
	}
	var detail trainingDetail
	if err := c.doJSON(ctx, http.MethodPost, "/v4/trainings", nil, req, &detail); err != nil {
		return domain.TrainingJob{}, fmt.Errorf("run training: %w", err)
	}
	job, err := detail.toDomain()
	if err != nil {
		return domain.TrainingJob{}, fmt.Errorf("run training: %w", err)
	}
	return job, nil
}

// GetTraining fetches full job details by id.
func (c *Client) GetTraining(ctx context.Context, jobID string) (domain.TrainingJob, error) {
	var detail trainingDetail
	path := "/v4/trainings/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return domain.TrainingJob{}, fmt.Errorf("get training %s: %w", jobID, err)
	}
	job, err := detail.toDomain()
	if err != nil {
		return domain.TrainingJob{}, fmt.Errorf("get training %s: %w", jobID, err)
	}
	return job, nil
}

// ListTrainings returns the jobs in the selected space.
func (c *Client) ListTrainings(ctx context.Context) ([]domain.TrainingJob, error) {
	var page struct {
		Resources []trainingDetail `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v4/trainings", nil, nil, &page); err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	out := make([]domain.TrainingJob, 0, len(page.Resources))
	for _, r := range page.Resources {
		job, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("list trainings: %w", err)
		}
		out = append(out, job)
	}
	return out, nil
}

// CancelTraining stops a running job. With hardDelete the platform also
// discards the job record and its artifacts; cancellation is irreversible
// either way.
func (c *Client) CancelTraining(ctx context.Context, jobID string, hardDelete bool) error {
	query := url.Values{}
	if hardDelete {
		query.Set("hard_delete", "true")
	}
	path := "/v4/trainings/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, http.MethodDelete, path, query, nil, nil); err != nil {
		return fmt.Errorf("cancel training %s: %w", jobID, err)
	}
	return nil
}
