package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
	"github.com/urfave/cli/v2"
)

type commands struct {
	logger *slog.Logger
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (m *commands) cmdRun() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "execute the full pipeline: stage, define, train, retrieve, publish, deploy",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			p, err := rt.pipeline()
			if err != nil {
				return err
			}
			res, err := p.Run(c.Context)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func (m *commands) cmdStage() *cli.Command {
	return &cli.Command{
		Name:  "stage",
		Usage: "fetch the dataset archive and upload it to the staging bucket",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			stager, err := rt.stager()
			if err != nil {
				return err
			}
			staged, err := stager.Stage(c.Context, rt.cfg.Dataset.SourceURL, rt.cfg.Dataset.CacheDir)
			if err != nil {
				return err
			}
			return printJSON(staged)
		},
	}
}

func (m *commands) cmdTrain() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "stage the dataset, register the definition, then run and await training",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			stager, err := rt.stager()
			if err != nil {
				return err
			}
			dataset, err := stager.Stage(c.Context, rt.cfg.Dataset.SourceURL, rt.cfg.Dataset.CacheDir)
			if err != nil {
				return err
			}
			def, err := rt.client.StoreDefinition(c.Context, rt.definition())
			if err != nil {
				return err
			}
			trainer, err := rt.trainer()
			if err != nil {
				return err
			}
			job, err := trainer.Run(c.Context, def.ID, dataset, rt.cfg.Storage.BucketOutputs, rt.cfg.Training.OutputPath)
			if err != nil {
				return err
			}
			job, err = trainer.Await(c.Context, job.ID)
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
}

func (m *commands) cmdStatus() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show the current state of a training job",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "job", Required: true, Usage: "training job id"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			job, err := rt.client.GetTraining(c.Context, c.String("job"))
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
}

func (m *commands) cmdCancel() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "cancel a training job",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "job", Required: true, Usage: "training job id"},
			&cli.BoolFlag{Name: "hard-delete", Usage: "also discard the job record and its artifacts"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			return rt.client.CancelTraining(c.Context, c.String("job"), c.Bool("hard-delete"))
		},
	}
}

func (m *commands) cmdPublish() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "retrieve a completed job's model artifact and publish it to the registry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "job", Required: true, Usage: "training job id"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			job, err := rt.client.GetTraining(c.Context, c.String("job"))
			if err != nil {
				return err
			}
			if job.State != domain.JobStateCompleted {
				return fmt.Errorf("job %s is %s, not completed", job.ID, job.State)
			}
			retriever, err := rt.retriever()
			if err != nil {
				return err
			}
			artifact, err := retriever.Retrieve(c.Context, job)
			if err != nil {
				return err
			}
			publisher, err := rt.publisher()
			if err != nil {
				return err
			}
			model, err := publisher.Publish(c.Context, artifact)
			if err != nil {
				return err
			}
			return printJSON(model)
		},
	}
}

func (m *commands) cmdDeploy() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "provision an online deployment for a registered model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Required: true, Usage: "registered model id"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			deployer, err := rt.deployer()
			if err != nil {
				return err
			}
			dep, err := deployer.Deploy(c.Context, c.String("model"))
			if err != nil {
				return err
			}
			return printJSON(dep)
		},
	}
}

func (m *commands) cmdScore() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "submit input vectors from a JSON file to a deployment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "deployment", Required: true, Usage: "deployment id"},
			&cli.StringFlag{Name: "input", Required: true, Usage: "JSON file holding an array of numeric vectors"},
			&cli.StringFlag{Name: "field", Value: "values", Usage: "input field name"},
			&cli.BoolFlag{Name: "normalize", Usage: "divide every value by 255 before scoring"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, m.logger)
			if err != nil {
				return err
			}
			vectors, err := readVectors(c.String("input"), c.Bool("normalize"))
			if err != nil {
				return err
			}
			deployer, err := rt.deployer()
			if err != nil {
				return err
			}
			resp, err := deployer.Score(c.Context, c.String("deployment"), mlplatform.ScoringRequest{
				InputData: []mlplatform.ScoringInput{{Name: c.String("field"), Values: vectors}},
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func readVectors(path string, normalize bool) ([][]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var vectors [][]float64
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("input %s holds no vectors", path)
	}
	if normalize {
		for _, vec := range vectors {
			for i := range vec {
				vec[i] /= 255
			}
		}
	}
	return vectors, nil
}
