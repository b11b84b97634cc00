package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
storage:
  endpoint: store.example.test:9000
  region: eu-de
  bucket_staging: inputs
  bucket_outputs: outputs
platform:
  endpoint: https://ml.example.test
  space_id: space-1
dataset:
  source_url: https://data.example.test/mnist.tar.gz
definition:
  name: mnist-cnn
  command: python3 train.py --epochs 5
  framework: tensorflow
  framework_version: "2.12"
training:
  poll_interval: 2s
  max_wait: 30m
model:
  name: mnist-cnn
  type: tensorflow_2.12
  software_spec:
    name: runtime-23.1
deployment:
  name: mnist-online
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelpipe.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsCredentialsFromEnv(t *testing.T) {
	t.Setenv("MODELPIPE_STORE_ACCESS_KEY", "ak")
	t.Setenv("MODELPIPE_STORE_SECRET_KEY", "sk")
	t.Setenv("MODELPIPE_PLATFORM_API_KEY", "platform-key")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Storage.AccessKey != "ak" || cfg.Storage.SecretKey != "sk" {
		t.Fatalf("storage credentials not filled: %+v", cfg.Storage)
	}
	if cfg.Platform.Credential.APIKey != "platform-key" {
		t.Fatalf("platform api key not filled")
	}
	if cfg.Platform.SpaceID != "space-1" {
		t.Fatalf("space id=%q", cfg.Platform.SpaceID)
	}

	if cfg.Training.PollInterval.Std() != 2*time.Second {
		t.Fatalf("poll interval=%v", cfg.Training.PollInterval.Std())
	}
	if cfg.Training.MaxWait.Std() != 30*time.Minute {
		t.Fatalf("max wait=%v", cfg.Training.MaxWait.Std())
	}
	// Defaults fill what the file left out.
	if cfg.Training.ArtifactSuffix != ".h5" {
		t.Fatalf("artifact suffix=%q", cfg.Training.ArtifactSuffix)
	}
	if cfg.Deployment.PollInterval.Std() != 5*time.Second {
		t.Fatalf("deployment poll interval=%v", cfg.Deployment.PollInterval.Std())
	}
	if cfg.Training.Hardware.Name != "small" || cfg.Training.Hardware.Nodes != 1 {
		t.Fatalf("hardware=%+v", cfg.Training.Hardware)
	}
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("MODELPIPE_STORE_ACCESS_KEY", "")
	t.Setenv("MODELPIPE_STORE_SECRET_KEY", "")
	t.Setenv("MODELPIPE_PLATFORM_API_KEY", "")

	if _, err := Load(writeConfig(t, sampleYAML)); err == nil {
		t.Fatalf("Load expected error without credentials")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("MODELPIPE_STORE_ACCESS_KEY", "ak")
	t.Setenv("MODELPIPE_STORE_SECRET_KEY", "sk")
	t.Setenv("MODELPIPE_PLATFORM_API_KEY", "platform-key")

	body := sampleYAML + "\nmystery_section:\n  x: 1\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("Load expected error for unknown field")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	body := `
training:
  poll_interval: soon
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("Load expected error for bad duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load expected error for missing file")
	}
}
