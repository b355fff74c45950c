package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/generator"
	"github.com/layiku/data-simulator/internal/registry"
	icache "github.com/layiku/data-simulator/internal/service/cache"
	"github.com/layiku/data-simulator/internal/services/stats"
	"github.com/layiku/data-simulator/pkg/config"
	xhttp "github.com/layiku/data-simulator/pkg/http"
	"github.com/layiku/data-simulator/pkg/logger"
	"github.com/layiku/data-simulator/pkg/util"
)

const (
	serviceName    = "data-simulator"
	serviceVersion = "1.0.0"

	cacheKeyAllData = "api:data:all"
)

// Handler serves the read-only API over the registry. Every route is a pure
// read; generators keep updating underneath regardless of traffic.
type Handler struct {
	log *logger.Logger
	reg *registry.Registry
	cfg *config.Config

	cache    icache.BytesCache
	cacheTTL time.Duration

	stream *StreamHub
}

func NewHandler(log *logger.Logger, reg *registry.Registry, cfg *config.Config) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{log: log, reg: reg, cfg: cfg}
}

// SetCache enables response caching for the hot full-map endpoint.
func (h *Handler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

// SetStream attaches the WebSocket hub; without it /api/stream is not
// registered.
func (h *Handler) SetStream(hub *StreamHub) { h.stream = hub }

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Info)

	g := e.Group("/api")
	g.GET("/objects", h.Objects)
	g.GET("/data", h.AllData)
	g.GET("/data/:name", h.ObjectData)
	g.GET("/data/:name/history", h.History)
	g.GET("/data/:name/stats", h.Stats)
	g.GET("/orders/:name", h.Orders)
	g.GET("/sum/:name/sources", h.SumSources)
	g.GET("/config", h.Configs)
	g.GET("/config/global", h.GlobalConfig)
	g.GET("/config/:name", h.ObjectConfig)
	if h.stream != nil {
		g.GET("/stream", h.stream.Serve)
	}
}

type serviceInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	ObjectsCount int      `json:"objects_count"`
	CycleReports []string `json:"cycle_reports,omitempty"`
}

func (h *Handler) Info(c echo.Context) error {
	return xhttp.SuccessResponse(c, serviceInfo{
		Name:         serviceName,
		Version:      serviceVersion,
		Description:  "simulated telemetry feed service",
		ObjectsCount: h.reg.Len(),
		CycleReports: h.reg.CycleReports(),
	})
}

func (h *Handler) Objects(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reg.Names())
}

// AllData returns every object's current snapshot. With caching enabled the
// marshaled envelope is reused for cache.ttl, so a wall of dashboards polling
// this route costs one snapshot pass per TTL window instead of one per poll.
func (h *Handler) AllData(c echo.Context) error {
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKeyAllData); err != nil {
			h.log.Warn("response cache read failed", logger.Error(err))
		} else if ok {
			return xhttp.SuccessBlobResponse(c, b)
		}
	}

	snaps := h.reg.CurrentAll()
	if h.cache == nil {
		return xhttp.SuccessResponse(c, snaps)
	}

	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    snaps,
	})
	if err != nil {
		return xhttp.SuccessResponse(c, snaps)
	}
	if err := h.cache.SetBytes(cacheKeyAllData, b, h.cacheTTL); err != nil {
		h.log.Warn("response cache write failed", logger.Error(err))
	}
	return xhttp.SuccessBlobResponse(c, b)
}

func (h *Handler) ObjectData(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, g.Current())
}

func (h *Handler) History(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	points := g.History(req.Count)
	if req.From != "" || req.To != "" {
		window, err := parseWindow(req.From, req.To)
		if err != nil {
			return xhttp.AppErrorResponse(c, err)
		}
		points = filterWindow(points, window)
	}
	return xhttp.SuccessResponse(c, points)
}

func (h *Handler) Stats(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, stats.Compute(g.History(0)))
}

func (h *Handler) Orders(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	if g.Type() != generator.Order {
		return xhttp.AppErrorResponse(c,
			xhttp.InvalidTypeErrorf("object '%s' is not an order feed", g.Name()))
	}

	req := &models.OrdersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, g.History(req.Count))
}

func (h *Handler) SumSources(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	sum, ok := g.(*generator.SumAggregate)
	if !ok {
		return xhttp.AppErrorResponse(c,
			xhttp.InvalidTypeErrorf("object '%s' is not a sum aggregate", g.Name()))
	}
	return xhttp.SuccessResponse(c, sum.SourceData())
}

func (h *Handler) Configs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reg.ConfigAll())
}

type globalConfigView struct {
	Environment     string `json:"environment"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	MetricsEnabled  bool   `json:"metrics_enabled"`
	StreamEnabled   bool   `json:"stream_enabled"`
	StreamInterval  string `json:"stream_interval"`
	CacheEnabled    bool   `json:"cache_enabled"`
	CacheBackend    string `json:"cache_backend,omitempty"`
	PipelineBackend string `json:"pipeline_backend"`
}

func (h *Handler) GlobalConfig(c echo.Context) error {
	return xhttp.SuccessResponse(c, globalConfigView{
		Environment:     h.cfg.Environment,
		Host:            h.cfg.Server.Host,
		Port:            h.cfg.Server.Port,
		MetricsEnabled:  h.cfg.Metrics.Enabled,
		StreamEnabled:   h.cfg.Stream.Enabled,
		StreamInterval:  h.cfg.Stream.Interval.Std().String(),
		CacheEnabled:    h.cfg.Cache.Enabled,
		CacheBackend:    h.cfg.Cache.Backend,
		PipelineBackend: h.cfg.Pipeline.Backend,
	})
}

func (h *Handler) ObjectConfig(c echo.Context) error {
	g, appErr := h.lookup(c.Param("name"))
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, g.Config())
}

// lookup resolves one object or builds the standard 404.
func (h *Handler) lookup(name string) (generator.Generator, *xhttp.AppError) {
	g, ok := h.reg.Lookup(name)
	if !ok {
		return nil, xhttp.NotFoundErrorf("object '%s' not found", name)
	}
	return g, nil
}

// timeWindow is a parsed from/to filter; a zero bound is open.
type timeWindow struct {
	from time.Time
	to   time.Time
}

func parseWindow(from, to string) (timeWindow, *xhttp.AppError) {
	var w timeWindow
	if from != "" {
		t, ok := util.ParseTime(from)
		if !ok {
			return w, xhttp.BadRequestErrorf("invalid 'from' time: %s", from)
		}
		w.from = t
	}
	if to != "" {
		t, ok := util.ParseTime(to)
		if !ok {
			return w, xhttp.BadRequestErrorf("invalid 'to' time: %s", to)
		}
		w.to = t
	}
	return w, nil
}

func filterWindow(points []models.DataPoint, w timeWindow) []models.DataPoint {
	out := make([]models.DataPoint, 0, len(points))
	for _, p := range points {
		if !w.from.IsZero() && p.Timestamp.Before(w.from) {
			continue
		}
		if !w.to.IsZero() && p.Timestamp.After(w.to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
