package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/registry"
	"github.com/layiku/data-simulator/internal/service/cache"
	"github.com/layiku/data-simulator/pkg/config"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func testConfig() *config.Config {
	objects := map[string]*config.ObjectConfig{
		"cpu": {DataType: config.TypeRandom, BaseValue: 40, UpdateRange: []float64{0, 0}},
		"orders": {
			DataType: config.TypeOrder,
			Unit:     "kW",
		},
		"total": {DataType: config.TypeSum, SourceObjects: []string{"cpu"}},
	}
	cfg := &config.Config{Objects: objects, ObjectOrder: []string{"cpu", "orders", "total"}}
	cfg.Environment = "test"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8000
	for _, obj := range objects {
		obj.Normalize()
	}
	return cfg
}

func newTestServer(t *testing.T) (*echo.Echo, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := registry.Build(cfg, registry.Deps{Seed: 1})
	h := NewHandler(nil, reg, cfg)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, cfg
}

func doGET(t *testing.T, e *echo.Echo, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("GET %s: bad envelope %q: %v", path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeErrs(t *testing.T, env envelope) []apiErr {
	t.Helper()
	var errs []apiErr
	if err := json.Unmarshal(env.Data, &errs); err != nil {
		t.Fatalf("error payload %s: %v", env.Data, err)
	}
	if len(errs) == 0 {
		t.Fatalf("empty error payload")
	}
	return errs
}

func TestInfo(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/")
	if code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("code = %d, envelope status = %d", code, env.Status)
	}
	var info struct {
		Name         string `json:"name"`
		ObjectsCount int    `json:"objects_count"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("info payload: %v", err)
	}
	if info.Name != "data-simulator" || info.ObjectsCount != 3 {
		t.Fatalf("info = %+v", info)
	}
}

func TestObjectsKeepsDeclarationOrder(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/objects")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var names []string
	if err := json.Unmarshal(env.Data, &names); err != nil {
		t.Fatalf("names payload: %v", err)
	}
	// Non-aggregates first in declared order, then aggregates.
	want := []string{"cpu", "orders", "total"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestAllData(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/data")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var all map[string]models.Snapshot
	if err := json.Unmarshal(env.Data, &all); err != nil {
		t.Fatalf("payload: %v", err)
	}
	snap, ok := all["cpu"]
	if !ok || snap.Value == nil || snap.Timestamp == nil {
		t.Fatalf("cpu snapshot = %+v", snap)
	}
	if v, _ := models.Numeric(snap.Value); v != 40 {
		t.Fatalf("cpu value = %v, want 40", snap.Value)
	}
}

func TestObjectDataUnknownIs404(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/data/nope")
	if code != http.StatusNotFound || env.Status != http.StatusNotFound {
		t.Fatalf("code = %d, envelope status = %d, want 404", code, env.Status)
	}
	if errs := decodeErrs(t, env); errs[0].Code != "ERR_NOT_FOUND" {
		t.Fatalf("error code = %s", errs[0].Code)
	}
}

func TestHistoryCountBound(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/data/cpu/history?count=1")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var points []models.DataPoint
	if err := json.Unmarshal(env.Data, &points); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len = %d, want 1", len(points))
	}
}

func TestHistoryWindow(t *testing.T) {
	e, _ := newTestServer(t)

	// Everything so far is newer than 2000-01-01 and older than tomorrow.
	code, env := doGET(t, e, "/api/data/cpu/history?from=2000-01-01T00:00:00Z")
	if code != http.StatusOK {
		t.Fatalf("from filter: code = %d", code)
	}
	var points []models.DataPoint
	if err := json.Unmarshal(env.Data, &points); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(points) == 0 {
		t.Fatalf("open window dropped everything")
	}

	code, env = doGET(t, e, "/api/data/cpu/history?to=2000-01-01T00:00:00Z")
	if code != http.StatusOK {
		t.Fatalf("to filter: code = %d", code)
	}
	if err := json.Unmarshal(env.Data, &points); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("past window kept %d points", len(points))
	}
}

func TestHistoryBadFromIs400(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/data/cpu/history?from=yesterday-ish")
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
	if errs := decodeErrs(t, env); errs[0].Code != "ERR_BAD_REQUEST" {
		t.Fatalf("error code = %s", errs[0].Code)
	}
}

func TestStats(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/data/cpu/stats")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var st models.SeriesStats
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if st.Count < 1 || st.Min == nil || *st.Min != 40 || *st.Max != 40 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestOrdersDefaultCountAndFormatting(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/orders/orders")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var recs []models.FormattedOrder
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("no seeded order")
	}
	if recs[0].PowerDemand == "" || recs[0].OrderID == 0 {
		t.Fatalf("record = %+v", recs[0])
	}
}

func TestOrdersOnNonOrderIs400(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/orders/cpu")
	if code != http.StatusBadRequest || env.Status != http.StatusBadRequest {
		t.Fatalf("code = %d, envelope status = %d, want 400", code, env.Status)
	}
	if errs := decodeErrs(t, env); errs[0].Code != "ERR_INVALID_TYPE" {
		t.Fatalf("error code = %s", errs[0].Code)
	}
}

func TestOrdersCountValidation(t *testing.T) {
	e, _ := newTestServer(t)
	code, _ := doGET(t, e, "/api/orders/orders?count=-3")
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
}

func TestSumSources(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/sum/total/sources")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var sources map[string]models.Snapshot
	if err := json.Unmarshal(env.Data, &sources); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if _, ok := sources["cpu"]; !ok {
		t.Fatalf("sources = %v", sources)
	}
}

func TestSumSourcesOnNonSumIs400(t *testing.T) {
	e, _ := newTestServer(t)
	code, env := doGET(t, e, "/api/sum/cpu/sources")
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
	if errs := decodeErrs(t, env); errs[0].Code != "ERR_INVALID_TYPE" {
		t.Fatalf("error code = %s", errs[0].Code)
	}
}

func TestConfigRoutes(t *testing.T) {
	e, _ := newTestServer(t)

	code, env := doGET(t, e, "/api/config")
	if code != http.StatusOK {
		t.Fatalf("all configs: code = %d", code)
	}
	var cfgs map[string]*config.ObjectConfig
	if err := json.Unmarshal(env.Data, &cfgs); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if cfgs["cpu"] == nil || cfgs["cpu"].DataType != config.TypeRandom {
		t.Fatalf("cpu config = %+v", cfgs["cpu"])
	}

	code, env = doGET(t, e, "/api/config/global")
	if code != http.StatusOK {
		t.Fatalf("global config: code = %d", code)
	}
	var global globalConfigView
	if err := json.Unmarshal(env.Data, &global); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if global.Host != "127.0.0.1" || global.Port != 8000 || global.Environment != "test" {
		t.Fatalf("global = %+v", global)
	}

	code, _ = doGET(t, e, "/api/config/orders")
	if code != http.StatusOK {
		t.Fatalf("object config: code = %d", code)
	}
	code, _ = doGET(t, e, "/api/config/nope")
	if code != http.StatusNotFound {
		t.Fatalf("unknown object config: code = %d, want 404", code)
	}
}

func TestAllDataCached(t *testing.T) {
	cfg := testConfig()
	reg := registry.Build(cfg, registry.Deps{Seed: 1})
	h := NewHandler(nil, reg, cfg)
	h.SetCache(cache.NewTTLCache(), time.Minute)
	e := echo.New()
	h.RegisterRoutes(e)

	code, first := doGET(t, e, "/api/data")
	if code != http.StatusOK {
		t.Fatalf("first: code = %d", code)
	}
	code, second := doGET(t, e, "/api/data")
	if code != http.StatusOK {
		t.Fatalf("second: code = %d", code)
	}
	if string(first.Data) != string(second.Data) {
		t.Fatalf("cached payload changed between polls within TTL")
	}
}
