package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

const testConfigYAML = `
storage:
  endpoint: %s
  access_key: ak
  secret_key: sk
platform:
  endpoint: https://ml.example.test
  api_key: platform-key
  space_id: space-1
dataset:
  source_url: https://data.example.test/mnist.tar.gz
definition:
  name: mnist-cnn
  command: python3 train.py --epochs 5
  framework: tensorflow
  framework_version: "2.12"
model:
  name: mnist-cnn
  type: tensorflow_2.12
  software_spec:
    name: runtime-23.1
deployment:
  name: mnist-online
`

func testCliContext(t *testing.T, configPath string) (*cli.Context, *slog.Logger) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fs := flag.NewFlagSet("modelpipe", flag.ContinueOnError)
	fs.String("config", configPath, "")
	return cli.NewContext(newApp(logger), fs, nil), logger
}

func TestNewRuntimeConfigErrorExitsTwo(t *testing.T) {
	c, logger := testCliContext(t, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := newRuntime(c, logger)
	if err == nil {
		t.Fatalf("newRuntime expected error for missing config")
	}
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("config error is not an exit coder: %v", err)
	}
	if coder.ExitCode() != 2 {
		t.Fatalf("exit code=%d, want 2", coder.ExitCode())
	}
}

func TestNewRuntimeStageErrorIsNotExitTwo(t *testing.T) {
	// The endpoint carries a path, which the object store client rejects
	// after config validation has already passed.
	path := filepath.Join(t.TempDir(), "modelpipe.yaml")
	body := fmt.Sprintf(testConfigYAML, "store.example.test:9000/extra")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, logger := testCliContext(t, path)
	_, err := newRuntime(c, logger)
	if err == nil {
		t.Fatalf("newRuntime expected error for bad endpoint")
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		t.Fatalf("stage error must not carry an exit code: %v", err)
	}
}

func TestReadVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(`[[0, 255], [255, 0]]`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	vectors, err := readVectors(path, false)
	if err != nil {
		t.Fatalf("readVectors err=%v", err)
	}
	if len(vectors) != 2 || vectors[0][1] != 255 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}

	normalized, err := readVectors(path, true)
	if err != nil {
		t.Fatalf("readVectors normalize err=%v", err)
	}
	if normalized[0][1] != 1 || normalized[1][0] != 1 || normalized[0][0] != 0 {
		t.Fatalf("unexpected normalized vectors: %v", normalized)
	}
}

func TestReadVectorsRejectsEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if _, err := readVectors(empty, false); err == nil {
		t.Fatalf("readVectors expected error for empty input")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"not": "vectors"}`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if _, err := readVectors(bad, false); err == nil {
		t.Fatalf("readVectors expected error for malformed input")
	}

	if _, err := readVectors(filepath.Join(dir, "absent.json"), false); err == nil {
		t.Fatalf("readVectors expected error for missing file")
	}
}
