// Package pipeline orchestrates the train-and-deploy workflow against the
// object store and the ML platform: stage dataset, publish definition, run
// and await training, retrieve and repackage the model artifact, publish it
// to the registry, and provision an online deployment.
//
// Stages run strictly in sequence; each consumes the identifiers the
// previous stage produced. A stage failure aborts the rest — there is no
// rollback, because every remote resource is owned by the external services.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/animus-labs/modelpipe/internal/domain"
)

// Params binds the stages to one pipeline run.
type Params struct {
	Stager      *Stager
	Definitions *DefinitionPublisher
	Trainer     *TrainingRunner
	Retriever   *ArtifactRetriever
	Publisher   *ModelPublisher
	Deployer    *Deployer

	DatasetURL   string
	CacheDir     string
	Definition   domain.TrainingDefinition
	OutputBucket string
	OutputPath   string
}

// Result carries every identifier the run produced, in stage order.
type Result struct {
	Dataset      StagedDataset
	DefinitionID string
	Job          domain.TrainingJob
	Artifact     domain.ModelArtifact
	Model        domain.RegisteredModel
	Deployment   domain.Deployment
}

type Pipeline struct {
	params Params
	logger *slog.Logger
}

func New(params Params, logger *slog.Logger) (*Pipeline, error) {
	if params.Stager == nil || params.Definitions == nil || params.Trainer == nil ||
		params.Retriever == nil || params.Publisher == nil || params.Deployer == nil {
		return nil, errors.New("all pipeline stages are required")
	}
	if params.DatasetURL == "" {
		return nil, errors.New("dataset url is required")
	}
	if params.CacheDir == "" {
		return nil, errors.New("cache dir is required")
	}
	if params.OutputBucket == "" {
		return nil, errors.New("output bucket is required")
	}
	if err := params.Definition.Validate(); err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{params: params, logger: logger}, nil
}

// Run executes all six stages and returns the produced identifiers. The
// returned Result is partially filled when an error occurs, up to the stage
// that failed.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var res Result

	dataset, err := p.params.Stager.Stage(ctx, p.params.DatasetURL, p.params.CacheDir)
	if err != nil {
		return res, fmt.Errorf("stage dataset: %w", err)
	}
	res.Dataset = dataset

	def, err := p.params.Definitions.Publish(ctx, p.params.Definition)
	if err != nil {
		return res, err
	}
	res.DefinitionID = def.ID

	job, err := p.params.Trainer.Run(ctx, def.ID, dataset, p.params.OutputBucket, p.params.OutputPath)
	if err != nil {
		return res, err
	}
	res.Job = job

	job, err = p.params.Trainer.Await(ctx, job.ID)
	if job.ID != "" {
		res.Job = job
	}
	if err != nil {
		return res, err
	}
	if job.State != domain.JobStateCompleted {
		return res, fmt.Errorf("training job %s ended %s: %s", job.ID, job.State, job.Message)
	}

	artifact, err := p.params.Retriever.Retrieve(ctx, job)
	if err != nil {
		return res, err
	}
	res.Artifact = artifact

	model, err := p.params.Publisher.Publish(ctx, artifact)
	if err != nil {
		return res, err
	}
	res.Model = model

	deployment, err := p.params.Deployer.Deploy(ctx, model.ID)
	if deployment.ID != "" {
		res.Deployment = deployment
	}
	if err != nil {
		return res, err
	}

	p.logger.Info("pipeline complete",
		"dataset_key", res.Dataset.Key,
		"definition_id", res.DefinitionID,
		"job_id", res.Job.ID,
		"model_id", res.Model.ID,
		"deployment_id", res.Deployment.ID,
	)
	return res, nil
}
