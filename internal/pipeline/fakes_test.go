package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/animus-labs/modelpipe/internal/domain"
	"github.com/animus-labs/modelpipe/internal/mlplatform"
	store "github.com/animus-labs/modelpipe/internal/storage/objectstore"
)

// fakeStore is an in-memory Store. List returns keys in lexicographic
// order, matching S3-compatible listing.
type fakeStore struct {
	buckets map[string]bool
	objects map[string]map[string][]byte
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buckets: map[string]bool{},
		objects: map[string]map[string][]byte{},
	}
}

func (f *fakeStore) addObject(bucket, key string, data []byte) {
	f.buckets[bucket] = true
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string][]byte{}
	}
	f.objects[bucket][key] = data
}

func (f *fakeStore) EnsureBucket(_ context.Context, bucket string) error {
	f.buckets[bucket] = true
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string][]byte{}
	}
	return nil
}

func (f *fakeStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.addObject(bucket, key, data)
	f.puts++
	return nil
}

func (f *fakeStore) PutFile(ctx context.Context, bucket, key, path, contentType string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return f.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType)
}

func (f *fakeStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, store.ObjectInfo, error) {
	info, err := f.Stat(ctx, bucket, key)
	if err != nil {
		return nil, store.ObjectInfo{}, err
	}
	return io.NopCloser(bytes.NewReader(f.objects[bucket][key])), info, nil
}

func (f *fakeStore) DownloadFile(ctx context.Context, bucket, key, path string) error {
	if _, err := f.Stat(ctx, bucket, key); err != nil {
		return err
	}
	return os.WriteFile(path, f.objects[bucket][key], 0o644)
}

func (f *fakeStore) Stat(_ context.Context, bucket, key string) (store.ObjectInfo, error) {
	data, ok := f.objects[bucket][key]
	if !ok {
		return store.ObjectInfo{}, fmt.Errorf("%s/%s: %w", bucket, key, store.ErrNotExist)
	}
	return store.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: time.Now()}, nil
}

func (f *fakeStore) List(_ context.Context, bucket, prefix string) ([]store.ObjectInfo, error) {
	var keys []string
	for k := range f.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]store.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, store.ObjectInfo{Key: k, Size: int64(len(f.objects[bucket][k]))})
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, bucket, key string) error {
	delete(f.objects[bucket], key)
	return nil
}

// fakePlatform scripts the platform client surface the stages consume.
type fakePlatform struct {
	defID     string
	storedDef domain.TrainingDefinition

	jobID        string
	resultsToken string
	submitted    []mlplatform.TrainingRequest
	jobStates    []domain.JobState
	jobPolls     int
	canceled     map[string]bool

	modelID      string
	modelReqs    []mlplatform.ModelRequest
	packagePaths []string

	deploymentID string
	scoringURL   string
	depStates    []domain.DeploymentState
	depPolls     int

	scored []mlplatform.ScoringRequest
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		defID:        "def-1",
		jobID:        "job-1",
		resultsToken: "job-1",
		jobStates:    []domain.JobState{domain.JobStateCompleted},
		modelID:      "model-1",
		deploymentID: "dep-1",
		scoringURL:   "https://ml.example.test/v4/deployments/dep-1/predictions",
		depStates:    []domain.DeploymentState{domain.DeploymentStateReady},
		canceled:     map[string]bool{},
	}
}

func (f *fakePlatform) StoreDefinition(_ context.Context, def domain.TrainingDefinition) (domain.TrainingDefinition, error) {
	f.storedDef = def
	def.ID = f.defID
	return def, nil
}

func (f *fakePlatform) RunTraining(_ context.Context, req mlplatform.TrainingRequest) (domain.TrainingJob, error) {
	f.submitted = append(f.submitted, req)
	return domain.TrainingJob{
		ID:           f.jobID,
		DefinitionID: req.DefinitionID,
		State:        domain.JobStatePending,
		ResultsToken: f.resultsToken,
	}, nil
}

func (f *fakePlatform) GetTraining(_ context.Context, jobID string) (domain.TrainingJob, error) {
	idx := f.jobPolls
	if idx >= len(f.jobStates) {
		idx = len(f.jobStates) - 1
	}
	f.jobPolls++
	return domain.TrainingJob{
		ID:           jobID,
		DefinitionID: f.defID,
		State:        f.jobStates[idx],
		ResultsToken: f.resultsToken,
	}, nil
}

func (f *fakePlatform) CancelTraining(_ context.Context, jobID string, hardDelete bool) error {
	f.canceled[jobID] = hardDelete
	return nil
}

func (f *fakePlatform) StoreModel(_ context.Context, req mlplatform.ModelRequest, packagePath string) (domain.RegisteredModel, error) {
	f.modelReqs = append(f.modelReqs, req)
	f.packagePaths = append(f.packagePaths, packagePath)
	return domain.RegisteredModel{ID: f.modelID, Name: req.Name, Type: req.Type}, nil
}

func (f *fakePlatform) CreateDeployment(_ context.Context, req mlplatform.DeploymentRequest) (domain.Deployment, error) {
	return domain.Deployment{
		ID:      f.deploymentID,
		ModelID: req.ModelID,
		Name:    req.Name,
		State:   domain.DeploymentStateInitializing,
	}, nil
}

func (f *fakePlatform) GetDeployment(_ context.Context, deploymentID string) (domain.Deployment, error) {
	idx := f.depPolls
	if idx >= len(f.depStates) {
		idx = len(f.depStates) - 1
	}
	f.depPolls++
	dep := domain.Deployment{ID: deploymentID, ModelID: f.modelID, State: f.depStates[idx]}
	if dep.State == domain.DeploymentStateReady {
		dep.ScoringURL = f.scoringURL
	}
	return dep, nil
}

func (f *fakePlatform) Score(_ context.Context, _ string, req mlplatform.ScoringRequest) (mlplatform.ScoringResponse, error) {
	f.scored = append(f.scored, req)
	var resp mlplatform.ScoringResponse
	for _, in := range req.InputData {
		for _, vec := range in.Values {
			class := 0
			if len(vec) > 0 && vec[0] >= 0.5 {
				class = 1
			}
			prob := []float64{0, 0}
			prob[class] = 1
			resp.Predictions = append(resp.Predictions, mlplatform.Prediction{
				Prediction:        prob,
				PredictionClasses: class,
				Probability:       prob,
			})
		}
	}
	return resp, nil
}
