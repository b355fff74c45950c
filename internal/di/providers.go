package di

import (
	"context"
	"fmt"
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	"github.com/layiku/data-simulator/internal/handler/api"
	mid "github.com/layiku/data-simulator/internal/middleware"
	internalrepo "github.com/layiku/data-simulator/internal/repository"
	"github.com/layiku/data-simulator/internal/registry"
	icache "github.com/layiku/data-simulator/internal/service/cache"
	pkgch "github.com/layiku/data-simulator/pkg/clickhouse"
	"github.com/layiku/data-simulator/pkg/config"
	xhttp "github.com/layiku/data-simulator/pkg/http"
	pkgkafka "github.com/layiku/data-simulator/pkg/kafka"
	applogger "github.com/layiku/data-simulator/pkg/logger"
	"github.com/layiku/data-simulator/pkg/metrics"
	"github.com/layiku/data-simulator/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSink builds the egress sink for the configured backend. Backend
// "none" yields a nil sink and the app runs without a pipeline.
func ProvideSink(cfg *config.Config, l *applogger.Logger) (repository.PointSink, error) {
	switch cfg.Pipeline.Backend {
	case "none", "":
		return nil, nil

	case "kafka":
		kc := cfg.Pipeline.Kafka
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(kc.Brokers),
			pkgkafka.WithCompression(kc.Compression),
			pkgkafka.WithReliability(kc.RequiredAcks, kc.Producer.MaxAttempts),
			pkgkafka.WithBatching(kc.Producer.BatchSize, kc.Producer.BatchBytes, kc.Producer.Linger.Std()),
			pkgkafka.WithWriteTimeout(kc.Producer.WriteTimeout.Std()),
			pkgkafka.WithAsync(kc.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		l.Info("kafka sink ready",
			applogger.Strings("brokers", kc.Brokers),
			applogger.String("topic", kc.Topic))
		return internalrepo.NewKafkaSink(producer, kc.Topic), nil

	case "clickhouse":
		cc := cfg.Pipeline.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(cc.Host),
			pkgch.WithPort(cc.Port),
			pkgch.WithDatabase(cc.Database),
			pkgch.WithCredentials(cc.User, cc.Password),
			pkgch.WithHTTP(cc.UseHTTP),
			pkgch.WithAsyncInsert(cc.AsyncInsert, cc.WaitForAsync),
			pkgch.WithTimeouts(cc.DialTimeout.Std(), cc.MaxExecutionTime.Std()),
			pkgch.WithMaxExecutionTime(cc.MaxExecutionTime.Std()),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		l.Info("clickhouse sink ready",
			applogger.String("host", cc.Host),
			applogger.String("table", cc.Database+"."+cc.Table))
		return internalrepo.NewClickHouseSink(client, cc.Database, cc.Table), nil

	default:
		return nil, fmt.Errorf("unknown pipeline backend %q", cfg.Pipeline.Backend)
	}
}

// ProvidePipeline wraps the sink in the bounded dispatch pipeline. Nil sink,
// nil pipeline.
func ProvidePipeline(cfg *config.Config, sink repository.PointSink, l *applogger.Logger) *mid.PointPipeline {
	if sink == nil {
		return nil
	}
	return mid.NewPointPipeline(sink, l,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithBatchSize(cfg.Pipeline.BatchSize),
		mid.WithFlushInterval(cfg.Pipeline.FlushInterval.Std()),
	)
}

// ProvideRegistry builds every configured generator. Appended points flow
// into the pipeline when one exists.
func ProvideRegistry(cfg *config.Config, l *applogger.Logger, m repository.Metrics, pipeline *mid.PointPipeline) *registry.Registry {
	deps := registry.Deps{Log: l, Metrics: m}
	if pipeline != nil {
		deps.Emit = func(ev models.FeedEvent) { pipeline.Dispatch(ev) }
	}
	return registry.Build(cfg, deps)
}

// ProvideCache builds the response cache, or nil when disabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (icache.BytesCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		rc := icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   "simulator:",
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		l.Info("redis response cache ready", applogger.String("addr", cfg.Cache.Redis.Addr))
		return rc, nil
	default:
		return icache.NewTTLCache(), nil
	}
}

// ProvideStreamHub builds the WebSocket hub, or nil when the stream is
// disabled.
func ProvideStreamHub(cfg *config.Config, l *applogger.Logger, reg *registry.Registry) *api.StreamHub {
	if !cfg.Stream.Enabled {
		return nil
	}
	return api.NewStreamHub(l, reg, cfg.Stream.Interval.Std(), cfg.Stream.ConnRate)
}

// ProvideHandler assembles the read facade.
func ProvideHandler(cfg *config.Config, l *applogger.Logger, reg *registry.Registry, c icache.BytesCache, hub *api.StreamHub) xhttp.Handler {
	h := api.NewHandler(l, reg, cfg)
	if c != nil {
		h.SetCache(c, cfg.Cache.TTL.Std())
	}
	if hub != nil {
		h.SetStream(hub)
	}
	return h
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	reg *registry.Registry,
	pipeline *mid.PointPipeline,
	sink repository.PointSink,
	handler xhttp.Handler,
	hub *api.StreamHub,
) *server.App {
	return server.New(cfg, l, reg, pipeline, sink, handler, hub)
}
