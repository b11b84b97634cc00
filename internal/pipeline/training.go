package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
	platformstore "github.com/animus-labs/modelpipe/internal/platform/objectstore"
	store "github.com/animus-labs/modelpipe/internal/storage/objectstore"
	"github.com/cenkalti/backoff/v4"
)

// ErrAwaitTimeout reports that a remote resource did not reach a terminal
// state within the caller's wait budget.
var ErrAwaitTimeout = errors.New("timed out waiting for terminal state")

var errJobNotTerminal = errors.New("training job not yet terminal")

// TrainingAPI is the slice of the platform client the training stage uses.
type TrainingAPI interface {
	RunTraining(ctx context.Context, req mlplatform.TrainingRequest) (domain.TrainingJob, error)
	GetTraining(ctx context.Context, jobID string) (domain.TrainingJob, error)
	CancelTraining(ctx context.Context, jobID string, hardDelete bool) error
}

// TrainingRunner submits training jobs and waits for them to finish. Waiting
// is a bounded poll: exponential backoff between status queries, hard stop at
// MaxWait.
type TrainingRunner struct {
	api          TrainingAPI
	store        store.Store
	storeCfg     platformstore.Config
	hardware     mlplatform.HardwareSpec
	pollInterval time.Duration
	maxInterval  time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// TrainingRunnerOptions sizes the runner's hardware request and poll budget.
type TrainingRunnerOptions struct {
	Hardware     mlplatform.HardwareSpec
	PollInterval time.Duration
	MaxInterval  time.Duration
	MaxWait      time.Duration
}

func NewTrainingRunner(api TrainingAPI, s store.Store, storeCfg platformstore.Config, opts TrainingRunnerOptions, logger *slog.Logger) (*TrainingRunner, error) {
	if api == nil {
		return nil, errors.New("training api is required")
	}
	if s == nil {
		return nil, errors.New("object store is required")
	}
	if err := storeCfg.Validate(); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &TrainingRunner{
		api:          api,
		store:        s,
		storeCfg:     storeCfg,
		hardware:     opts.Hardware,
		pollInterval: opts.PollInterval,
		maxInterval:  opts.MaxInterval,
		maxWait:      opts.MaxWait,
		logger:       logger,
	}
	if r.hardware.Name == "" {
		r.hardware = mlplatform.HardwareSpec{Name: "small", Nodes: 1}
	}
	if r.pollInterval <= 0 {
		r.pollInterval = 10 * time.Second
	}
	if r.maxInterval <= 0 {
		r.maxInterval = time.Minute
	}
	if r.maxWait <= 0 {
		r.maxWait = time.Hour
	}
	return r, nil
}

// Run submits a training job for the definition against the staged dataset.
// The output bucket is created first so the trainer has somewhere to write on
// a fresh store.
func (r *TrainingRunner) Run(ctx context.Context, definitionID string, dataset StagedDataset, outputBucket, outputPath string) (domain.TrainingJob, error) {
	if err := r.store.EnsureBucket(ctx, outputBucket); err != nil {
		return domain.TrainingJob{}, fmt.Errorf("ensure output bucket: %w", err)
	}
	req := mlplatform.TrainingRequest{
		DefinitionID:     definitionID,
		InputData:        r.dataReference(dataset.Bucket, dataset.Key),
		ResultsReference: r.dataReference(outputBucket, outputPath),
		HardwareSpec:     r.hardware,
	}
	job, err := r.api.RunTraining(ctx, req)
	if err != nil {
		return domain.TrainingJob{}, fmt.Errorf("submit training: %w", err)
	}
	r.logger.Info("training submitted", "job_id", job.ID, "definition_id", definitionID, "state", job.State)
	return job, nil
}

// Await polls the job until it reaches a terminal state. The returned job
// carries the final state; the caller decides what completed/failed/canceled
// mean for the pipeline. Await never polls past MaxWait or a canceled
// context.
func (r *TrainingRunner) Await(ctx context.Context, jobID string) (domain.TrainingJob, error) {
	var last domain.TrainingJob

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.pollInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxWait

	op := func() error {
		job, err := r.api.GetTraining(ctx, jobID)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = job
		if !job.State.Terminal() {
			r.logger.Info("training in progress", "job_id", jobID, "state", job.State)
			return errJobNotTerminal
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errJobNotTerminal) {
			return last, fmt.Errorf("training job %s after %s: %w", jobID, r.maxWait, ErrAwaitTimeout)
		}
		return last, err
	}
	r.logger.Info("training finished", "job_id", jobID, "state", last.State, "message", last.Message)
	return last, nil
}

// Cancel stops the job. Irreversible; artifacts are only discarded when
// hardDelete is set.
func (r *TrainingRunner) Cancel(ctx context.Context, jobID string, hardDelete bool) error {
	if err := r.api.CancelTraining(ctx, jobID, hardDelete); err != nil {
		return err
	}
	r.logger.Info("training canceled", "job_id", jobID, "hard_delete", hardDelete)
	return nil
}

func (r *TrainingRunner) dataReference(bucket, path string) mlplatform.DataReference {
	scheme := "http"
	if r.storeCfg.UseSSL {
		scheme = "https"
	}
	return mlplatform.DataReference{
		Connection: mlplatform.StorageConnection{
			EndpointURL:     scheme + "://" + r.storeCfg.Endpoint,
			AccessKeyID:     r.storeCfg.AccessKey,
			SecretAccessKey: r.storeCfg.SecretKey,
		},
		Location: mlplatform.StorageLocation{Bucket: bucket, Path: path},
	}
}
