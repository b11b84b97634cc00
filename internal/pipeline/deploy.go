package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
	"github.com/cenkalti/backoff/v4"
)

var errDeploymentNotReady = errors.New("deployment not yet terminal")

// DeploymentAPI is the slice of the platform client the deploy stage uses.
type DeploymentAPI interface {
	CreateDeployment(ctx context.Context, req mlplatform.DeploymentRequest) (domain.Deployment, error)
	GetDeployment(ctx context.Context, deploymentID string) (domain.Deployment, error)
	Score(ctx context.Context, deploymentID string, req mlplatform.ScoringRequest) (mlplatform.ScoringResponse, error)
}

// Deployer provisions an online endpoint for a registered model and submits
// scoring requests once it is ready.
type Deployer struct {
	api          DeploymentAPI
	name         string
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

func NewDeployer(api DeploymentAPI, name string, pollInterval, maxWait time.Duration, logger *slog.Logger) (*Deployer, error) {
	if api == nil {
		return nil, errors.New("deployment api is required")
	}
	if name == "" {
		return nil, errors.New("deployment name is required")
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{api: api, name: name, pollInterval: pollInterval, maxWait: maxWait, logger: logger}, nil
}

// Deploy provisions the endpoint and waits until it is ready. A deployment
// that lands in the failed state is an error.
func (d *Deployer) Deploy(ctx context.Context, modelID string) (domain.Deployment, error) {
	if modelID == "" {
		return domain.Deployment{}, errors.New("model id is required")
	}
	dep, err := d.api.CreateDeployment(ctx, mlplatform.DeploymentRequest{Name: d.name, ModelID: modelID})
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("create deployment: %w", err)
	}
	d.logger.Info("deployment created", "deployment_id", dep.ID, "model_id", modelID, "state", dep.State)

	dep, err = d.awaitReady(ctx, dep)
	if err != nil {
		return dep, err
	}
	d.logger.Info("deployment ready", "deployment_id", dep.ID, "scoring_url", dep.ScoringURL)
	return dep, nil
}

func (d *Deployer) awaitReady(ctx context.Context, dep domain.Deployment) (domain.Deployment, error) {
	if dep.State == domain.DeploymentStateReady {
		return dep, nil
	}
	last := dep

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.pollInterval
	b.MaxElapsedTime = d.maxWait

	op := func() error {
		current, err := d.api.GetDeployment(ctx, dep.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = current
		if !current.State.Terminal() {
			return errDeploymentNotReady
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errDeploymentNotReady) {
			return last, fmt.Errorf("deployment %s after %s: %w", dep.ID, d.maxWait, ErrAwaitTimeout)
		}
		return last, err
	}
	if last.State == domain.DeploymentStateFailed {
		return last, fmt.Errorf("deployment %s failed", last.ID)
	}
	return last, nil
}

// Score submits inference inputs to the deployment and returns predictions
// in input order.
func (d *Deployer) Score(ctx context.Context, deploymentID string, req mlplatform.ScoringRequest) (mlplatform.ScoringResponse, error) {
	resp, err := d.api.Score(ctx, deploymentID, req)
	if err != nil {
		return mlplatform.ScoringResponse{}, err
	}
	var inputs int
	for _, in := range req.InputData {
		inputs += len(in.Values)
	}
	if len(resp.Predictions) != inputs {
		return mlplatform.ScoringResponse{}, fmt.Errorf(
			"scoring returned %d predictions for %d input vectors", len(resp.Predictions), inputs)
	}
	return resp, nil
}
