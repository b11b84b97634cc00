package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/animus-labs/modelpipe/internal/archive"
	"github.com/animus-labs/modelpipe/internal/domain"
	store "github.com/animus-labs/modelpipe/internal/storage/objectstore"
)

// ErrArtifactNotFound reports that no object in the outputs bucket matched
// the job's results token and the expected model-file suffix.
var ErrArtifactNotFound = errors.New("no matching model artifact")

// ArtifactRetriever locates the trained model file in the outputs bucket,
// downloads it, and repackages it for registry upload.
type ArtifactRetriever struct {
	store   store.Store
	bucket  string
	suffix  string
	workDir string
	logger  *slog.Logger
}

func NewArtifactRetriever(s store.Store, bucket, suffix, workDir string, logger *slog.Logger) (*ArtifactRetriever, error) {
	if s == nil {
		return nil, errors.New("object store is required")
	}
	if bucket == "" {
		return nil, errors.New("outputs bucket is required")
	}
	if suffix == "" {
		return nil, errors.New("model file suffix is required")
	}
	if workDir == "" {
		return nil, errors.New("work dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactRetriever{store: s, bucket: bucket, suffix: suffix, workDir: workDir, logger: logger}, nil
}

// Retrieve scans the outputs bucket for the first object whose key contains
// the job's results token and ends with the model-file suffix, in store
// listing order (lexicographic by key for S3-compatible stores). Multiple
// matches are legal; the extra candidates are logged so ambiguity is
// visible. Zero matches is an error, never an empty artifact.
func (r *ArtifactRetriever) Retrieve(ctx context.Context, job domain.TrainingJob) (domain.ModelArtifact, error) {
	if job.ResultsToken == "" {
		return domain.ModelArtifact{}, errors.New("job has no results token")
	}

	objects, err := r.store.List(ctx, r.bucket, "")
	if err != nil {
		return domain.ModelArtifact{}, fmt.Errorf("list outputs bucket: %w", err)
	}

	var matches []store.ObjectInfo
	for _, obj := range objects {
		if strings.Contains(obj.Key, job.ResultsToken) && strings.HasSuffix(obj.Key, r.suffix) {
			matches = append(matches, obj)
		}
	}
	if len(matches) == 0 {
		return domain.ModelArtifact{}, fmt.Errorf("job %s token %q suffix %q in bucket %s: %w",
			job.ID, job.ResultsToken, r.suffix, r.bucket, ErrArtifactNotFound)
	}
	selected := matches[0]
	if len(matches) > 1 {
		r.logger.Warn("multiple model artifacts matched, using first by listing order",
			"job_id", job.ID, "selected", selected.Key, "candidates", len(matches))
	}

	jobDir := filepath.Join(r.workDir, job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return domain.ModelArtifact{}, fmt.Errorf("create work dir: %w", err)
	}

	localPath := filepath.Join(jobDir, filepath.Base(selected.Key))
	if err := r.store.DownloadFile(ctx, r.bucket, selected.Key, localPath); err != nil {
		return domain.ModelArtifact{}, fmt.Errorf("download model %s: %w", selected.Key, err)
	}

	base := filepath.Base(selected.Key)
	packagePath := filepath.Join(jobDir, strings.TrimSuffix(base, r.suffix)+".tar.gz")
	if err := archive.Pack(localPath, packagePath); err != nil {
		return domain.ModelArtifact{}, fmt.Errorf("package model: %w", err)
	}

	r.logger.Info("model artifact retrieved",
		"job_id", job.ID, "key", selected.Key, "package", packagePath, "size", selected.Size)

	return domain.ModelArtifact{
		JobID:       job.ID,
		SourceKey:   selected.Key,
		LocalPath:   localPath,
		PackagePath: packagePath,
		SizeBytes:   selected.Size,
	}, nil
}
