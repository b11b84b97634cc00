// Package config loads the pipeline configuration: a YAML file with
// environment fallbacks for credentials, passed explicitly into each stage.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/animus-labs/modelpipe/internal/mlplatform"
	"github.com/animus-labs/modelpipe/internal/platform/env"
	platformstore "github.com/animus-labs/modelpipe/internal/platform/objectstore"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type PlatformConfig struct {
	Credential mlplatform.Credential `yaml:",inline"`
	SpaceID    string                `yaml:"space_id"`
}

type DatasetConfig struct {
	SourceURL string `yaml:"source_url"`
	CacheDir  string `yaml:"cache_dir"`
}

type DefinitionConfig struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	Command          string `yaml:"command"`
	Framework        string `yaml:"framework"`
	FrameworkVersion string `yaml:"framework_version"`
}

type HardwareConfig struct {
	Name  string `yaml:"name"`
	Nodes int    `yaml:"nodes"`
}

type TrainingConfig struct {
	Hardware        HardwareConfig `yaml:"hardware"`
	OutputPath      string         `yaml:"output_path"`
	ArtifactSuffix  string         `yaml:"artifact_suffix"`
	WorkDir         string         `yaml:"work_dir"`
	PollInterval    Duration       `yaml:"poll_interval"`
	MaxPollInterval Duration       `yaml:"max_poll_interval"`
	MaxWait         Duration       `yaml:"max_wait"`
}

type SoftwareSpecConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ModelConfig struct {
	Name         string             `yaml:"name"`
	Type         string             `yaml:"type"`
	SoftwareSpec SoftwareSpecConfig `yaml:"software_spec"`
}

type DeploymentConfig struct {
	Name         string   `yaml:"name"`
	PollInterval Duration `yaml:"poll_interval"`
	MaxWait      Duration `yaml:"max_wait"`
}

// Config is the full pipeline configuration.
type Config struct {
	Storage    platformstore.Config `yaml:"storage"`
	Platform   PlatformConfig       `yaml:"platform"`
	Dataset    DatasetConfig        `yaml:"dataset"`
	Definition DefinitionConfig     `yaml:"definition"`
	Training   TrainingConfig       `yaml:"training"`
	Model      ModelConfig          `yaml:"model"`
	Deployment DeploymentConfig     `yaml:"deployment"`
}

// Load reads the YAML file at path, fills credential gaps from the
// environment, applies defaults, and validates.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv fills secrets left out of the file from the environment, so the
// YAML can be committed without credentials.
func (c *Config) applyEnv() {
	if c.Storage.AccessKey == "" {
		c.Storage.AccessKey = env.String("MODELPIPE_STORE_ACCESS_KEY", "")
	}
	if c.Storage.SecretKey == "" {
		c.Storage.SecretKey = env.String("MODELPIPE_STORE_SECRET_KEY", "")
	}
	if c.Platform.Credential.APIKey == "" {
		c.Platform.Credential.APIKey = env.String("MODELPIPE_PLATFORM_API_KEY", "")
	}
	if c.Platform.SpaceID == "" {
		c.Platform.SpaceID = env.String("MODELPIPE_PLATFORM_SPACE_ID", "")
	}
}

func (c *Config) applyDefaults() {
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.BucketStaging == "" {
		c.Storage.BucketStaging = "training-inputs"
	}
	if c.Storage.BucketOutputs == "" {
		c.Storage.BucketOutputs = "training-outputs"
	}
	if c.Dataset.CacheDir == "" {
		c.Dataset.CacheDir = "data"
	}
	if c.Training.ArtifactSuffix == "" {
		c.Training.ArtifactSuffix = ".h5"
	}
	if c.Training.WorkDir == "" {
		c.Training.WorkDir = "artifacts"
	}
	if c.Training.Hardware.Name == "" {
		c.Training.Hardware = HardwareConfig{Name: "small", Nodes: 1}
	}
	if c.Training.PollInterval <= 0 {
		c.Training.PollInterval = Duration(10 * time.Second)
	}
	if c.Training.MaxPollInterval <= 0 {
		c.Training.MaxPollInterval = Duration(time.Minute)
	}
	if c.Training.MaxWait <= 0 {
		c.Training.MaxWait = Duration(time.Hour)
	}
	if c.Deployment.PollInterval <= 0 {
		c.Deployment.PollInterval = Duration(5 * time.Second)
	}
	if c.Deployment.MaxWait <= 0 {
		c.Deployment.MaxWait = Duration(15 * time.Minute)
	}
}

func (c Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Platform.Credential.Validate(); err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	if strings.TrimSpace(c.Platform.SpaceID) == "" {
		return errors.New("platform: space id is required")
	}
	if strings.TrimSpace(c.Dataset.SourceURL) == "" {
		return errors.New("dataset: source url is required")
	}
	if strings.TrimSpace(c.Definition.Name) == "" {
		return errors.New("definition: name is required")
	}
	if strings.TrimSpace(c.Definition.Command) == "" {
		return errors.New("definition: command is required")
	}
	if strings.TrimSpace(c.Definition.Framework) == "" {
		return errors.New("definition: framework is required")
	}
	if strings.TrimSpace(c.Definition.FrameworkVersion) == "" {
		return errors.New("definition: framework version is required")
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		return errors.New("model: name is required")
	}
	if strings.TrimSpace(c.Model.Type) == "" {
		return errors.New("model: type is required")
	}
	if strings.TrimSpace(c.Deployment.Name) == "" {
		return errors.New("deployment: name is required")
	}
	return nil
}
