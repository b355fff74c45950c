package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer tuning. Zero values fall back to the
// defaults NewProducer seeds.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	MaxAttempts  int
	Compression  string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

// WithBrokers sets the bootstrap brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression picks the message codec: gzip, snappy, lz4, or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithReliability sets the ack level (-1 = all ISRs) and how many times the
// writer retries a failed produce.
func WithReliability(requiredAcks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = requiredAcks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithBatching tunes writer batching: max messages per batch, max aggregate
// bytes, and how long a partial batch may linger before it is sent anyway.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.BatchTimeout = linger
		}
	}
}

// WithWriteTimeout bounds one produce round trip.
func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if d > 0 {
			c.WriteTimeout = d
		}
	}
}

// WithAsync switches the writer to fire-and-forget. Errors then never reach
// PublishBatch callers, so the egress flush counters stop reflecting
// delivery.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey places messages by key hash, keeping one object's events
// ordered within a partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}
