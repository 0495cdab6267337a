package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"backend/internal/mlbackend"
	"backend/internal/models"
	"backend/internal/repository"

	"go.uber.org/zap"
)

type fakeBackend struct {
	resp  mlbackend.Response
	err   error
	calls int
}

func (f *fakeBackend) Name() string         { return "inference" }
func (f *fakeBackend) ModelVersion() string { return "test-model" }
func (f *fakeBackend) Call(ctx context.Context, text, language string, opts mlbackend.Options) (mlbackend.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakePredictionRepo struct {
	records   map[string]*models.Prediction
	created   []*models.Prediction
	createErr error
	total     int
	gotLimit  int
	gotOffset int
	attached  map[string]*models.FeedbackSnapshot
	attachErr error
}

func newFakePredictionRepo() *fakePredictionRepo {
	return &fakePredictionRepo{
		records:  make(map[string]*models.Prediction),
		attached: make(map[string]*models.FeedbackSnapshot),
	}
}

func (f *fakePredictionRepo) Create(p *models.Prediction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, p)
	f.records[p.ID] = p
	return nil
}

func (f *fakePredictionRepo) GetByID(id string) (*models.Prediction, error) {
	p, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakePredictionRepo) GetByRequester(requesterID int64, limit, offset int) ([]*models.Prediction, error) {
	f.gotLimit = limit
	f.gotOffset = offset
	return nil, nil
}

func (f *fakePredictionRepo) CountByRequester(requesterID int64) (int, error) {
	return f.total, nil
}

func (f *fakePredictionRepo) AttachFeedback(id string, snapshot *models.FeedbackSnapshot) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached[id] = snapshot
	return nil
}

func (f *fakePredictionRepo) GetStats() (*repository.PredictionStats, error) {
	return &repository.PredictionStats{}, nil
}

func (f *fakePredictionRepo) CountByLanguage() ([]repository.LanguageCount, error) { return nil, nil }
func (f *fakePredictionRepo) CountSinceHours(hours int) (int, error)               { return 0, nil }
func (f *fakePredictionRepo) GetRecent(limit int) ([]*models.Prediction, error)    { return nil, nil }

type fakeNotifier struct {
	downs int
}

func (f *fakeNotifier) BackendDown(variant string, err error) { f.downs++ }

func newService(backend *fakeBackend, repo *fakePredictionRepo, notifier Notifier) PredictionService {
	return NewPredictionService(repo, backend, mlbackend.NormalizeInference, notifier, zap.NewNop())
}

func richResponse() *mlbackend.InferenceResponse {
	return &mlbackend.InferenceResponse{
		Label:         1,
		Confidence:    0.88,
		Probabilities: []float64{0.12, 0.88},
		Explanation: &mlbackend.InferenceExplanation{
			Tokens:      []string{"Wannan", "labari", "ne"},
			Importances: []float64{0.2, 0.5, 0.3},
			Method:      "integrated-gradients",
		},
		BiasScores: &mlbackend.InferenceBiasScores{Gender: 0.1, Ethnic: 0.2, Religious: 0.05, Overall: 0.4},
	}
}

func TestPredictRejectsEmptyText(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	repo := newFakePredictionRepo()
	svc := newService(backend, repo, nil)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "", Language: "ha"}, models.Anonymous{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if backend.calls != 0 {
		t.Error("backend must not be called for invalid input")
	}
	if len(repo.created) != 0 {
		t.Error("nothing must be persisted for invalid input")
	}
}

func TestPredictRejectsUnsupportedLanguage(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	repo := newFakePredictionRepo()
	svc := newService(backend, repo, nil)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "hello", Language: "en"}, models.Anonymous{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if backend.calls != 0 {
		t.Error("backend must not be called for unsupported language")
	}
}

func TestPredictRejectsOversizedText(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	svc := newService(backend, newFakePredictionRepo(), nil)

	_, err := svc.Predict(context.Background(), PredictRequest{
		Text:     strings.Repeat("a", models.MaxTextLength+1),
		Language: "ha",
	}, models.Anonymous{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictTimeoutPersistsNothing(t *testing.T) {
	backend := &fakeBackend{err: mlbackend.ErrTimeout}
	repo := newFakePredictionRepo()
	notifier := &fakeNotifier{}
	svc := newService(backend, repo, notifier)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "Wannan labari ne", Language: "ha"}, models.Anonymous{})
	if !errors.Is(err, ErrBackendTimeout) {
		t.Fatalf("expected ErrBackendTimeout, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("a failed call must not produce a record")
	}
	if notifier.downs != 1 {
		t.Errorf("expected one outage alert, got %d", notifier.downs)
	}
}

func TestPredictUnavailableMapsAndAlerts(t *testing.T) {
	backend := &fakeBackend{err: mlbackend.ErrUnavailable}
	notifier := &fakeNotifier{}
	svc := newService(backend, newFakePredictionRepo(), notifier)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "Wannan labari ne", Language: "ha"}, models.Anonymous{})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if notifier.downs != 1 {
		t.Errorf("expected one outage alert, got %d", notifier.downs)
	}
}

func TestPredictCallErrorStaysInternal(t *testing.T) {
	backend := &fakeBackend{err: &mlbackend.CallError{StatusCode: 502, Body: "bad gateway"}}
	repo := newFakePredictionRepo()
	svc := newService(backend, repo, nil)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "Wannan labari ne", Language: "ha"}, models.Anonymous{})
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if strings.Contains(err.Error(), "bad gateway") {
		t.Error("raw backend body must not leak into the caller-facing error")
	}
	if len(repo.created) != 0 {
		t.Error("a failed call must not produce a record")
	}
}

func TestPredictSuccessPersistsConsistentRecord(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	repo := newFakePredictionRepo()
	svc := newService(backend, repo, nil)

	p, err := svc.Predict(context.Background(), PredictRequest{
		Text:          "Wannan labari ne",
		Language:      "ha",
		CallerAddress: "203.0.113.7",
		CallerAgent:   "curl/8.0",
	}, models.Anonymous{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(repo.created))
	}
	if p.ID == "" {
		t.Error("expected a generated record id")
	}
	if p.Probabilities[p.Label] != p.Confidence {
		t.Errorf("probabilities[%d]=%v inconsistent with confidence %v", p.Label, p.Probabilities[p.Label], p.Confidence)
	}
	if p.Probabilities[1-p.Label] != 1-p.Confidence {
		t.Errorf("complement probability %v inconsistent", p.Probabilities[1-p.Label])
	}
	if p.Explanation.Status != models.ExplanationGenuine {
		t.Errorf("expected genuine explanation, got %q", p.Explanation.Status)
	}
	if p.BackendSource != "inference" {
		t.Errorf("expected backend source recorded, got %q", p.BackendSource)
	}
	if p.ModelVersion != "test-model" {
		t.Errorf("expected client model version fallback, got %q", p.ModelVersion)
	}
	if p.RequesterID != nil {
		t.Error("anonymous prediction must have no requester")
	}
	if p.ProcessingTimeMs < 0 {
		t.Errorf("negative processing time %d", p.ProcessingTimeMs)
	}
}

func TestPredictRecordsRequesterForAuthenticated(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	svc := newService(backend, newFakePredictionRepo(), nil)

	p, err := svc.Predict(context.Background(), PredictRequest{Text: "Wannan labari ne", Language: "ha"},
		models.Authenticated{UserID: 7, Username: "amina", Role: "user"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.RequesterID == nil || *p.RequesterID != 7 {
		t.Errorf("expected requester id 7, got %v", p.RequesterID)
	}
}

func TestPredictPersistenceFailureSurfaces(t *testing.T) {
	backend := &fakeBackend{resp: richResponse()}
	repo := newFakePredictionRepo()
	repo.createErr = errors.New("connection reset")
	svc := newService(backend, repo, nil)

	_, err := svc.Predict(context.Background(), PredictRequest{Text: "Wannan labari ne", Language: "ha"}, models.Anonymous{})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	svc := newService(&fakeBackend{}, newFakePredictionRepo(), nil)

	_, _, err := svc.History(models.Anonymous{}, 1, 20)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	repo := newFakePredictionRepo()
	repo.total = 45
	svc := newService(&fakeBackend{}, repo, nil)

	_, pagination, err := svc.History(models.Authenticated{UserID: 3}, 2, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.gotLimit != 20 || repo.gotOffset != 20 {
		t.Errorf("expected limit=20 offset=20, got limit=%d offset=%d", repo.gotLimit, repo.gotOffset)
	}
	if pagination.Pages != 3 {
		t.Errorf("expected 3 pages for 45 records, got %d", pagination.Pages)
	}
	if pagination.Total != 45 || pagination.Page != 2 || pagination.Limit != 20 {
		t.Errorf("unexpected pagination: %+v", pagination)
	}
}

func TestHistoryClampsPageAndLimit(t *testing.T) {
	repo := newFakePredictionRepo()
	svc := newService(&fakeBackend{}, repo, nil)

	_, pagination, err := svc.History(models.Authenticated{UserID: 3}, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pagination.Page != 1 {
		t.Errorf("expected page clamped to 1, got %d", pagination.Page)
	}
	if pagination.Limit != maxPageSize {
		t.Errorf("expected limit clamped to %d, got %d", maxPageSize, pagination.Limit)
	}
}

func TestGetByIDAccessMatrix(t *testing.T) {
	repo := newFakePredictionRepo()
	ownerID := int64(1)
	repo.records["owned"] = &models.Prediction{ID: "owned", RequesterID: &ownerID}
	repo.records["open"] = &models.Prediction{ID: "open"}
	svc := newService(&fakeBackend{}, repo, nil)

	owner := models.Authenticated{UserID: 1}
	stranger := models.Authenticated{UserID: 2}

	if _, err := svc.GetByID("owned", owner); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := svc.GetByID("owned", stranger); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for stranger, got %v", err)
	}
	if _, err := svc.GetByID("owned", models.Anonymous{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for anonymous, got %v", err)
	}
	if _, err := svc.GetByID("open", models.Anonymous{}); err != nil {
		t.Errorf("anonymous read of unowned record failed: %v", err)
	}
	if _, err := svc.GetByID("open", stranger); err != nil {
		t.Errorf("authenticated read of unowned record failed: %v", err)
	}
	if _, err := svc.GetByID("missing", owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
