package main

import (
	"fmt"
	"log/slog"

	"github.com/animus-labs/modelpipe/internal/config"
	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
	"github.com/animus-labs/modelpipe/internal/pipeline"
	platformstore "github.com/animus-labs/modelpipe/internal/platform/objectstore"
	store "github.com/animus-labs/modelpipe/internal/storage/objectstore"
	"github.com/urfave/cli/v2"
)

// runtime holds everything a command needs: validated config plus the two
// external-service clients.
type runtime struct {
	cfg    config.Config
	store  *store.MinioStore
	client *mlplatform.Client
	logger *slog.Logger
}

func newRuntime(c *cli.Context, logger *slog.Logger) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		// config problems exit 2, runtime problems exit 1
		return nil, cli.Exit(err.Error(), 2)
	}

	mc, err := platformstore.NewMinIOClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	if err := platformstore.EnsureBuckets(c.Context, mc, cfg.Storage); err != nil {
		return nil, fmt.Errorf("prepare buckets: %w", err)
	}
	s, err := store.NewMinioStore(mc, cfg.Storage.Region)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}

	client, err := mlplatform.NewClient(cfg.Platform.Credential)
	if err != nil {
		return nil, fmt.Errorf("platform client: %w", err)
	}
	if err := client.SetSpace(cfg.Platform.SpaceID); err != nil {
		return nil, fmt.Errorf("select space: %w", err)
	}

	return &runtime{cfg: cfg, store: s, client: client, logger: logger}, nil
}

func (r *runtime) definition() domain.TrainingDefinition {
	return domain.TrainingDefinition{
		Name:             r.cfg.Definition.Name,
		Description:      r.cfg.Definition.Description,
		Command:          r.cfg.Definition.Command,
		Framework:        r.cfg.Definition.Framework,
		FrameworkVersion: r.cfg.Definition.FrameworkVersion,
		SpaceID:          r.cfg.Platform.SpaceID,
	}
}

func (r *runtime) stager() (*pipeline.Stager, error) {
	return pipeline.NewStager(r.store, r.cfg.Storage.BucketStaging, r.logger)
}

func (r *runtime) trainer() (*pipeline.TrainingRunner, error) {
	return pipeline.NewTrainingRunner(r.client, r.store, r.cfg.Storage, pipeline.TrainingRunnerOptions{
		Hardware: mlplatform.HardwareSpec{
			Name:  r.cfg.Training.Hardware.Name,
			Nodes: r.cfg.Training.Hardware.Nodes,
		},
		PollInterval: r.cfg.Training.PollInterval.Std(),
		MaxInterval:  r.cfg.Training.MaxPollInterval.Std(),
		MaxWait:      r.cfg.Training.MaxWait.Std(),
	}, r.logger)
}

func (r *runtime) retriever() (*pipeline.ArtifactRetriever, error) {
	return pipeline.NewArtifactRetriever(
		r.store,
		r.cfg.Storage.BucketOutputs,
		r.cfg.Training.ArtifactSuffix,
		r.cfg.Training.WorkDir,
		r.logger,
	)
}

func (r *runtime) publisher() (*pipeline.ModelPublisher, error) {
	return pipeline.NewModelPublisher(
		r.client,
		r.cfg.Model.Name,
		r.cfg.Model.Type,
		mlplatform.SoftwareSpec{
			Name:    r.cfg.Model.SoftwareSpec.Name,
			Version: r.cfg.Model.SoftwareSpec.Version,
		},
		r.logger,
	)
}

func (r *runtime) deployer() (*pipeline.Deployer, error) {
	return pipeline.NewDeployer(
		r.client,
		r.cfg.Deployment.Name,
		r.cfg.Deployment.PollInterval.Std(),
		r.cfg.Deployment.MaxWait.Std(),
		r.logger,
	)
}

func (r *runtime) pipeline() (*pipeline.Pipeline, error) {
	stager, err := r.stager()
	if err != nil {
		return nil, err
	}
	definitions, err := pipeline.NewDefinitionPublisher(r.client, r.logger)
	if err != nil {
		return nil, err
	}
	trainer, err := r.trainer()
	if err != nil {
		return nil, err
	}
	retriever, err := r.retriever()
	if err != nil {
		return nil, err
	}
	publisher, err := r.publisher()
	if err != nil {
		return nil, err
	}
	deployer, err := r.deployer()
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Params{
		Stager:       stager,
		Definitions:  definitions,
		Trainer:      trainer,
		Retriever:    retriever,
		Publisher:    publisher,
		Deployer:     deployer,
		DatasetURL:   r.cfg.Dataset.SourceURL,
		CacheDir:     r.cfg.Dataset.CacheDir,
		Definition:   r.definition(),
		OutputBucket: r.cfg.Storage.BucketOutputs,
		OutputPath:   r.cfg.Training.OutputPath,
	}, r.logger)
}
