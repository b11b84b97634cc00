package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/modelpipe/internal/platform/env"
)

// Config holds the connection settings for the S3-compatible object store
// that carries staged training inputs and training outputs.
type Config struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	BucketStaging string `yaml:"bucket_staging"`
	BucketOutputs string `yaml:"bucket_outputs"`
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("MODELPIPE_STORE_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("MODELPIPE_STORE_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("MODELPIPE_STORE_ACCESS_KEY", ""),
		SecretKey:     env.String("MODELPIPE_STORE_SECRET_KEY", ""),
		Region:        env.String("MODELPIPE_STORE_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketStaging: env.String("MODELPIPE_STORE_BUCKET_STAGING", "training-inputs"),
		BucketOutputs: env.String("MODELPIPE_STORE_BUCKET_OUTPUTS", "training-outputs"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketStaging) == "" {
		return errors.New("staging bucket is required")
	}
	if strings.TrimSpace(c.BucketOutputs) == "" {
		return errors.New("outputs bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
