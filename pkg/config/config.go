package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/layiku/data-simulator/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Server      struct {
		Host            string   `yaml:"host" default:"0.0.0.0"`
		Port            int      `yaml:"port" default:"8000"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
		MaxAgeDays int    `yaml:"max_age_days" default:"14"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Enabled bool     `yaml:"enabled"`
		Backend string   `yaml:"backend" default:"memory"`
		TTL     Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Stream struct {
		Enabled  bool     `yaml:"enabled"`
		Interval Duration `yaml:"interval"`
		// Connection attempts per second allowed from one remote address.
		ConnRate float64 `yaml:"conn_rate" default:"5"`
	} `yaml:"stream"`
	Pipeline struct {
		Backend       string   `yaml:"backend" default:"none"`
		BufferSize    int      `yaml:"buffer_size" default:"1024"`
		BatchSize     int      `yaml:"batch_size" default:"100"`
		FlushInterval Duration `yaml:"flush_interval"`
		Kafka         struct {
			Brokers      []string `yaml:"brokers"`
			Topic        string   `yaml:"topic" default:"simulator.datapoints"`
			RequiredAcks int      `yaml:"required_acks" default:"1"`
			Compression  string   `yaml:"compression" default:"snappy"`
			Producer     struct {
				MaxAttempts  int      `yaml:"max_attempts" default:"3"`
				Linger       Duration `yaml:"linger"`
				BatchBytes   int      `yaml:"batch_bytes" default:"1048576"`
				BatchSize    int      `yaml:"batch_size" default:"100"`
				WriteTimeout Duration `yaml:"write_timeout"`
				Async        bool     `yaml:"async"`
			} `yaml:"producer"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host             string   `yaml:"host" default:"localhost"`
			Port             int      `yaml:"port" default:"9000"`
			Database         string   `yaml:"database" default:"simulator"`
			Table            string   `yaml:"table" default:"data_points"`
			User             string   `yaml:"user" default:"default"`
			Password         string   `yaml:"password"`
			UseHTTP          bool     `yaml:"use_http"`
			AsyncInsert      bool     `yaml:"async_insert"`
			WaitForAsync     bool     `yaml:"wait_for_async_insert"`
			DialTimeout      Duration `yaml:"dial_timeout"`
			MaxExecutionTime Duration `yaml:"max_execution_time"`
		} `yaml:"clickhouse"`
	} `yaml:"pipeline"`
	Engine struct {
		// Bound on the per-generator wait during StopAll.
		ShutdownWait Duration `yaml:"shutdown_wait"`
	} `yaml:"engine"`
	Objects map[string]*ObjectConfig `yaml:"objects"`

	// Declaration order of the objects mapping, preserved from the file.
	ObjectOrder []string `yaml:"-"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes, defaults, and validates raw YAML config bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.applyDurationDefaults()

	// Recover the objects mapping order; Go maps do not keep it.
	c.ObjectOrder = objectOrder(b)

	for name, obj := range c.Objects {
		if obj == nil {
			obj = &ObjectConfig{}
			c.Objects[name] = obj
		}
		obj.Normalize()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SIM_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SIM_SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("SIM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SIM_PIPELINE_BACKEND"); v != "" {
		c.Pipeline.Backend = v
	}
	if v := os.Getenv("SIM_KAFKA_BROKERS"); v != "" {
		c.Pipeline.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SIM_KAFKA_TOPIC"); v != "" {
		c.Pipeline.Kafka.Topic = v
	}
	if v := os.Getenv("SIM_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDurationDefaults() {
	setIfZero(&c.Server.ReadTimeout, 10*time.Second)
	setIfZero(&c.Server.WriteTimeout, 10*time.Second)
	setIfZero(&c.Server.ShutdownTimeout, 10*time.Second)
	setIfZero(&c.Cache.TTL, 500*time.Millisecond)
	setIfZero(&c.Stream.Interval, time.Second)
	setIfZero(&c.Pipeline.FlushInterval, time.Second)
	setIfZero(&c.Pipeline.Kafka.Producer.Linger, 50*time.Millisecond)
	setIfZero(&c.Pipeline.Kafka.Producer.WriteTimeout, 5*time.Second)
	setIfZero(&c.Pipeline.ClickHouse.DialTimeout, 5*time.Second)
	setIfZero(&c.Pipeline.ClickHouse.MaxExecutionTime, 30*time.Second)
	setIfZero(&c.Engine.ShutdownWait, time.Second)
}

func setIfZero(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	switch c.Pipeline.Backend {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("pipeline.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Pipeline.Backend)
	}
	if c.Pipeline.Backend == "kafka" && len(c.Pipeline.Kafka.Brokers) == 0 {
		return fmt.Errorf("pipeline.kafka.brokers cannot be empty when backend is kafka")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// objectOrder extracts the key order of the top-level objects mapping.
func objectOrder(b []byte) []string {
	var raw struct {
		Objects yaml.Node `yaml:"objects"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil
	}
	if raw.Objects.Kind != yaml.MappingNode {
		return nil
	}
	order := make([]string, 0, len(raw.Objects.Content)/2)
	for i := 0; i+1 < len(raw.Objects.Content); i += 2 {
		order = append(order, raw.Objects.Content[i].Value)
	}
	return order
}

// Duration wraps time.Duration so YAML and JSON can carry values like "500ms".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}
