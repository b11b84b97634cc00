package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	store "github.com/animus-labs/modelpipe/internal/storage/objectstore"
)

// StagedDataset reports where the dataset archive ended up.
type StagedDataset struct {
	Bucket     string
	Key        string
	LocalPath  string
	SizeBytes  int64
	FromCache  bool
	AlreadyPut bool
}

// Stager makes the dataset archive available in the staging bucket. Both the
// local download and the remote upload are keyed by file name and checked
// before doing work, so re-runs create no duplicates.
type Stager struct {
	store  store.Store
	bucket string
	httpc  *http.Client
	logger *slog.Logger
}

func NewStager(s store.Store, bucket string, logger *slog.Logger) (*Stager, error) {
	if s == nil {
		return nil, errors.New("object store is required")
	}
	if bucket == "" {
		return nil, errors.New("staging bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{
		store:  s,
		bucket: bucket,
		httpc:  &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}, nil
}

// Stage fetches sourceURL into cacheDir unless already cached, then uploads
// it to the staging bucket unless the object already exists. A fetch failure
// is fatal; nothing is cleaned up on error.
func (s *Stager) Stage(ctx context.Context, sourceURL, cacheDir string) (StagedDataset, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return StagedDataset{}, fmt.Errorf("parse source url: %w", err)
	}
	fileName := path.Base(u.Path)
	if fileName == "" || fileName == "/" || fileName == "." {
		return StagedDataset{}, fmt.Errorf("source url has no file name: %q", sourceURL)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return StagedDataset{}, fmt.Errorf("create cache dir: %w", err)
	}
	localPath := filepath.Join(cacheDir, fileName)

	staged := StagedDataset{Bucket: s.bucket, Key: fileName, LocalPath: localPath}

	if info, err := os.Stat(localPath); err == nil {
		staged.FromCache = true
		staged.SizeBytes = info.Size()
		s.logger.Info("dataset already cached", "path", localPath, "size", info.Size())
	} else {
		size, err := s.fetch(ctx, sourceURL, localPath)
		if err != nil {
			return StagedDataset{}, fmt.Errorf("fetch dataset: %w", err)
		}
		staged.SizeBytes = size
		s.logger.Info("dataset fetched", "url", sourceURL, "path", localPath, "size", size)
	}

	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return StagedDataset{}, fmt.Errorf("ensure staging bucket: %w", err)
	}

	if _, err := s.store.Stat(ctx, s.bucket, fileName); err == nil {
		staged.AlreadyPut = true
		s.logger.Info("dataset already staged", "bucket", s.bucket, "key", fileName)
		return staged, nil
	} else if !errors.Is(err, store.ErrNotExist) {
		return StagedDataset{}, fmt.Errorf("stat staged dataset: %w", err)
	}

	if err := s.store.PutFile(ctx, s.bucket, fileName, localPath, "application/gzip"); err != nil {
		return StagedDataset{}, fmt.Errorf("upload dataset: %w", err)
	}
	s.logger.Info("dataset staged", "bucket", s.bucket, "key", fileName)
	return staged, nil
}

func (s *Stager) fetch(ctx context.Context, sourceURL, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, sourceURL)
	}

	// Write to a temp name first so an interrupted fetch never passes the
	// cache check on the next run.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*")
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return size, nil
}
