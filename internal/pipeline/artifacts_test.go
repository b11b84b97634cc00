package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/animus-labs/modelpipe/internal/archive"
	"github.com/animus-labs/modelpipe/internal/domain"
)

func TestRetrieveMatchesTokenAndSuffix(t *testing.T) {
	fs := newFakeStore()
	fs.addObject("training-outputs", "job-1/notes.txt", []byte("log line"))
	fs.addObject("training-outputs", "training-job-1/model.h5", []byte("weights"))
	fs.addObject("training-outputs", "zz-other-job/model.h5", []byte("other"))

	retriever, err := NewArtifactRetriever(fs, "training-outputs", ".h5", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewArtifactRetriever err=%v", err)
	}

	job := domain.TrainingJob{ID: "job-1", DefinitionID: "def-1", State: domain.JobStateCompleted, ResultsToken: "job-1"}
	artifact, err := retriever.Retrieve(context.Background(), job)
	if err != nil {
		t.Fatalf("Retrieve err=%v", err)
	}
	if artifact.SourceKey != "training-job-1/model.h5" {
		t.Fatalf("SourceKey=%q, want training-job-1/model.h5", artifact.SourceKey)
	}

	got, err := os.ReadFile(artifact.LocalPath)
	if err != nil {
		t.Fatalf("read downloaded model: %v", err)
	}
	if string(got) != "weights" {
		t.Fatalf("downloaded content=%q", got)
	}

	if filepath.Ext(artifact.PackagePath) != ".gz" {
		t.Fatalf("PackagePath=%q, want tar.gz", artifact.PackagePath)
	}
	extracted, err := archive.Unpack(artifact.PackagePath, t.TempDir())
	if err != nil {
		t.Fatalf("Unpack package err=%v", err)
	}
	if len(extracted) != 1 || filepath.Base(extracted[0]) != "model.h5" {
		t.Fatalf("unexpected package contents: %v", extracted)
	}
}

func TestRetrieveFirstMatchInListingOrder(t *testing.T) {
	fs := newFakeStore()
	fs.addObject("training-outputs", "job-7/b/model.h5", []byte("b"))
	fs.addObject("training-outputs", "job-7/a/model.h5", []byte("a"))

	retriever, err := NewArtifactRetriever(fs, "training-outputs", ".h5", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewArtifactRetriever err=%v", err)
	}

	job := domain.TrainingJob{ID: "job-7", DefinitionID: "def-1", State: domain.JobStateCompleted, ResultsToken: "job-7"}
	artifact, err := retriever.Retrieve(context.Background(), job)
	if err != nil {
		t.Fatalf("Retrieve err=%v", err)
	}
	if artifact.SourceKey != "job-7/a/model.h5" {
		t.Fatalf("SourceKey=%q, want first key by listing order", artifact.SourceKey)
	}
}

func TestRetrieveNotFound(t *testing.T) {
	fs := newFakeStore()
	fs.addObject("training-outputs", "job-1/notes.txt", []byte("no model here"))

	retriever, err := NewArtifactRetriever(fs, "training-outputs", ".h5", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewArtifactRetriever err=%v", err)
	}

	job := domain.TrainingJob{ID: "job-1", DefinitionID: "def-1", State: domain.JobStateCompleted, ResultsToken: "job-1"}
	_, err = retriever.Retrieve(context.Background(), job)
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("Retrieve err=%v, want ErrArtifactNotFound", err)
	}
}

func TestRetrieveRequiresResultsToken(t *testing.T) {
	retriever, err := NewArtifactRetriever(newFakeStore(), "training-outputs", ".h5", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewArtifactRetriever err=%v", err)
	}
	job := domain.TrainingJob{ID: "job-1", DefinitionID: "def-1", State: domain.JobStateCompleted}
	if _, err := retriever.Retrieve(context.Background(), job); err == nil {
		t.Fatalf("Retrieve expected error for missing results token")
	}
}
