package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/FilingPulse/internal/scheduler"
	"github.com/LJTian/FilingPulse/internal/storage"
)

type fakeStore struct {
	runs    []storage.Run
	records []storage.RecordRow
	err     error

	gotJob     string
	gotVariant string
	gotLimit   int
}

func (f *fakeStore) ListRuns(_ context.Context, job string, limit int) ([]storage.Run, error) {
	f.gotJob, f.gotLimit = job, limit
	return f.runs, f.err
}

func (f *fakeStore) ListRecords(_ context.Context, variant string, limit int) ([]storage.RecordRow, error) {
	f.gotVariant, f.gotLimit = variant, limit
	return f.records, f.err
}

type fakeJobs struct {
	triggerErr error
	triggered  []string
}

func (f *fakeJobs) Jobs() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "filings", CronSpec: "0 */6 * * *"}}
}

func (f *fakeJobs) Trigger(name string) error {
	f.triggered = append(f.triggered, name)
	return f.triggerErr
}

func newTestEngine(store RunStore, jobs JobControl, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	NewServer(store, jobs, "filings").RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestEngine(nil, &fakeJobs{}), http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestListRunsAndRecords(t *testing.T) {
	store := &fakeStore{
		runs:    []storage.Run{{ID: 1, Job: "filings", Rows: 27}},
		records: []storage.RecordRow{{ID: "a", Variant: "filings", Key: "2019-06-30"}},
	}
	r := newTestEngine(store, &fakeJobs{})

	w := do(r, http.MethodGet, "/api/v1/runs?job=filings&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "filings", store.gotJob)
	assert.Equal(t, 5, store.gotLimit)

	var body struct {
		Code string        `json:"code"`
		Data []storage.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Code)
	assert.Equal(t, 27, body.Data[0].Rows)

	w = do(r, http.MethodGet, "/api/v1/records?variant=filings&limit=bogus")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "filings", store.gotVariant)
	assert.Equal(t, 20, store.gotLimit)
	assert.Contains(t, w.Body.String(), "2019-06-30")
}

func TestStoreErrorsAndMissingStore(t *testing.T) {
	w := do(newTestEngine(&fakeStore{err: errors.New("db down")}, &fakeJobs{}), http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(newTestEngine(nil, &fakeJobs{}), http.MethodGet, "/api/v1/records")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTriggerRun(t *testing.T) {
	jobs := &fakeJobs{}
	r := newTestEngine(nil, jobs)

	w := do(r, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"filings"}, jobs.triggered)

	jobs.triggerErr = scheduler.ErrJobRunning
	w = do(r, http.MethodPost, "/api/v1/runs?job=filings")
	assert.Equal(t, http.StatusConflict, w.Code)

	jobs.triggerErr = scheduler.ErrUnknownJob
	w = do(r, http.MethodPost, "/api/v1/runs?job=tweets")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/jobs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cronSpec":"0 */6 * * *"`)
}

func TestBasicAuthMiddleware(t *testing.T) {
	r := newTestEngine(nil, &fakeJobs{}, BasicAuthMiddleware("user", "pass"))

	// /health 免认证
	if w := do(r, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}

	w := do(r, http.MethodGet, "/api/v1/jobs")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without auth = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="FilingPulse"` {
		t.Fatalf("WWW-Authenticate = %q", got)
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	bad.SetBasicAuth("user", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, bad)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong password = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.SetBasicAuth("user", "pass")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status with auth = %d, want 200", w.Code)
	}
}
