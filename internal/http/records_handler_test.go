package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/cache"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/datasync"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

type testEnv struct {
	store  *recordstore.MemoryStore
	kv     *fakeKV
	ctrl   *datasync.Controller
	router *Router
}

func newTestEnv(t *testing.T, seed ...domain.BreakdownRecord) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	ms := recordstore.NewMemoryStore()
	ms.Seed(seed...)
	kv := &fakeKV{data: map[string]string{}}
	ctrl := datasync.NewController(ms, cache.NewLocalCache(kv, "", logger), logger, datasync.Options{LoadTimeout: time.Second})
	ctrl.Load(context.Background())

	h := NewRecordsHandler(ctrl, logger)
	h.now = func() time.Time { return time.Date(2024, 1, 10, 9, 30, 15, 0, time.UTC) }

	r := NewRouter(logger)
	r.RegisterRecordRoutes(h)
	r.RegisterOptionsRoutes()
	r.RegisterHealthRoutes(NewHealthHandler(ms, time.Second, logger))
	return &testEnv{store: ms, kv: kv, ctrl: ctrl, router: r}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func seedRecord(id string, minutesAgo int) domain.BreakdownRecord {
	return domain.BreakdownRecord{
		ID:        id,
		Date:      "2024-01-01",
		Executive: "Adarsh",
		Shift:     "General (8am-5pm)",
		Machine:   "Pump",
		Category:  "Mechanical",
		DelayTime: 2,
		Priority:  domain.PriorityHigh,
		Timestamp: domain.StoreTime(time.Now().Add(-time.Duration(minutesAgo) * time.Minute)),
	}
}

func TestListRecords_WrapsSnapshot(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5), seedRecord("b", 1))

	w := env.do(http.MethodGet, "/api/v1/breakdown-records", "")

	require.Equal(t, http.StatusOK, w.Code)
	var res Result[datasync.State]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, ResultSuccess, res.Code)
	require.Len(t, res.Result.Records, 2)
	assert.Equal(t, "b", res.Result.Records[0].ID)
	assert.Equal(t, datasync.SourceRemote, res.Result.Source)
}

func TestCreateRecord(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/breakdown-records", `{
		"date":"2024-01-01","executive":"Adarsh","shift":"General (8am-5pm)",
		"machine":"Other","machineOther":"Roof Bolter","category":"Mechanical",
		"delayTime":"2.5","priority":"High","spareParts":"bolt, nut"
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, `"code":2000`)
	assert.Contains(t, body, `"machine":"Roof Bolter"`)

	records := env.ctrl.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.Hours(2.5), records[0].DelayTime)
	assert.Contains(t, env.kv.data[cache.DefaultKey], "Roof Bolter")
}

func TestCreateRecord_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/breakdown-records", `{"date":"","machine":"Pump"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Date is required")
	assert.Contains(t, w.Body.String(), "Executive name is required")
	assert.Empty(t, env.ctrl.Records())
}

func TestCreateRecord_RemoteFailureReturnsWarning(t *testing.T) {
	env := newTestEnv(t)
	env.store.Fail(&recordstore.StoreError{Op: "create", Code: recordstore.CodeUnavailable, Err: errors.New("down")})

	w := env.do(http.MethodPost, "/api/v1/breakdown-records", `{
		"date":"2024-01-01","executive":"Adarsh","shift":"General (8am-5pm)",
		"machine":"Pump","category":"Mechanical","delayTime":"2.5","priority":"High"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"warning"`)
	assert.Contains(t, w.Body.String(), datasync.MsgAddFailed)
	assert.Len(t, env.ctrl.Records(), 1)
}

func TestCreateRecord_InvalidDelayTimeIsFieldError(t *testing.T) {
	env := newTestEnv(t)

	for _, delay := range []string{`"abc"`, `""`, `"  "`, `true`} {
		w := env.do(http.MethodPost, "/api/v1/breakdown-records", `{
			"date":"2024-01-01","executive":"Adarsh","shift":"General (8am-5pm)",
			"machine":"Pump","category":"Mechanical","delayTime":`+delay+`,"priority":"High"
		}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, delay)
		assert.Contains(t, w.Body.String(), "Valid delay time is required", delay)
	}
	assert.Empty(t, env.ctrl.Records())
}

func TestUpdateRecord_InvalidDelayTimeIsFieldError(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	w := env.do(http.MethodPatch, "/api/v1/breakdown-records/a", `{"delayTime":""}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Valid delay time is required")
	assert.Equal(t, domain.Hours(2), env.ctrl.Records()[0].DelayTime)
}

// clearingController 写操作返回后立即清除 lastError，模拟并发写操作重置提示
type clearingController struct {
	*datasync.Controller
}

func (c clearingController) AddRecord(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, string) {
	created, lastError := c.Controller.AddRecord(ctx, record)
	c.Controller.DismissError()
	return created, lastError
}

func (c clearingController) DeleteRecord(ctx context.Context, id string) (bool, string) {
	removed, lastError := c.Controller.DeleteRecord(ctx, id)
	c.Controller.DismissError()
	return removed, lastError
}

func TestMutation_WarningSurvivesConcurrentErrorReset(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))
	env.store.Fail(&recordstore.StoreError{Op: "create", Code: recordstore.CodeUnavailable, Err: errors.New("down")})

	logger := zap.NewNop()
	r := NewRouter(logger)
	r.RegisterRecordRoutes(NewRecordsHandler(clearingController{env.ctrl}, logger))
	do := func(method, target, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
		return w
	}

	w := do(http.MethodPost, "/api/v1/breakdown-records", `{
		"date":"2024-01-01","executive":"Adarsh","shift":"General (8am-5pm)",
		"machine":"Pump","category":"Mechanical","delayTime":1,"priority":"High"
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"warning"`)
	assert.Contains(t, w.Body.String(), datasync.MsgAddFailed)
	assert.Empty(t, env.ctrl.LastError())

	w = do(http.MethodDelete, "/api/v1/breakdown-records/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"warning"`)
	assert.Contains(t, w.Body.String(), datasync.MsgDeleteFailed)
}

func TestUpdateRecord(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	w := env.do(http.MethodPatch, "/api/v1/breakdown-records/a", `{"resolution":"replaced seal"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := env.ctrl.Records()[0]
	assert.Equal(t, "replaced seal", rec.Resolution)
	assert.Equal(t, "Pump", rec.Machine)
	assert.Equal(t, "a", rec.ID)
}

func TestUpdateRecord_Errors(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/v1/breakdown-records/a", `{}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPut, "/api/v1/breakdown-records/a", `{"executive":"  "}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/api/v1/breakdown-records/missing", `{"resolution":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/v1/breakdown-records/a", `not json`).Code)
}

func TestDeleteRecord(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5), seedRecord("b", 1))

	w := env.do(http.MethodDelete, "/api/v1/breakdown-records/a", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
	records := env.ctrl.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)
}

func TestRefreshAndDismissError(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))
	env.store.Fail(&recordstore.StoreError{Op: "list", Code: recordstore.CodePermissionDenied, Err: errors.New("rules")})

	w := env.do(http.MethodPost, "/api/v1/breakdown-records/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res Result[datasync.State]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Result.Degraded)
	assert.Contains(t, res.Result.LastError, "security rules")
	assert.Len(t, res.Result.Records, 1, "falls back to the cached list")

	w = env.do(http.MethodPost, "/api/v1/breakdown-records/dismiss-error", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.ctrl.LastError())

	assert.Equal(t, http.StatusMethodNotAllowed, env.do(http.MethodGet, "/api/v1/breakdown-records/refresh", "").Code)
}

func TestExport_CSV(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	w := env.do(http.MethodGet, "/api/v1/breakdown-records/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="breakdown-records-2024-01-10-09-30-15.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Successfully exported 1 records to CSV", w.Header().Get("X-Export-Message"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Executive,"))
}

func TestExport_XLSXWithFilename(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	w := env.do(http.MethodGet, "/api/v1/breakdown-records/export?format=xlsx&filename=../jan%22.xlsx", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="jan.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/breakdown-records/export?format=csv", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No records to export")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/breakdown-records/export?format=pdf", "").Code)
}

func TestAnalytics(t *testing.T) {
	rec := seedRecord("a", 5)
	rec.SpareParts = "bolt, nut; washer"
	env := newTestEnv(t, rec)

	w := env.do(http.MethodGet, "/api/v1/breakdown-records/analytics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"distinctParts":3`)
	assert.Contains(t, w.Body.String(), `"totalRecords":1`)
}

func TestGetOptions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/options", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Conveyor Belt")
	assert.Contains(t, w.Body.String(), "Night (12am-8am)")
}

func TestProbeRecordStore(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	w := env.do(http.MethodGet, "/api/v1/health/record-store", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Found 1 records")

	env.store.Fail(&recordstore.StoreError{Op: "list", Code: recordstore.CodeUnavailable, Err: errors.New("down")})
	w = env.do(http.MethodGet, "/api/v1/health/record-store", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Record store service is unavailable.")
}

func TestGetRecordAndUnknownPaths(t *testing.T) {
	env := newTestEnv(t, seedRecord("a", 5))

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/breakdown-records/a", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/breakdown-records/zzz", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/breakdown-records/a/b", "").Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "", sanitizeFilename(""))
	assert.Equal(t, "jan.csv", sanitizeFilename("../../jan.csv"))
	assert.Equal(t, "jan.csv", sanitizeFilename(`C:\tmp\jan.csv`))
	assert.Equal(t, "a b.csv", sanitizeFilename(`a "b.csv`))
}
