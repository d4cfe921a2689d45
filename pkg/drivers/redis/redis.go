package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"golang.org/x/time/rate"
)

// Cache writes EXL records into Redis hashes, one hash per lookup index.
type Cache struct {
	client  *redis.Client
	config  Config
	limiter *rate.Limiter
}

// Config holds Redis-specific configuration
type Config struct {
	Address         string        `yaml:"address" mapstructure:"address"`
	Password        string        `yaml:"password" mapstructure:"password"`
	DB              int           `yaml:"db" mapstructure:"db"`
	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`
	PoolSize        int           `yaml:"pool_size" mapstructure:"pool_size"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	// Index hashes
	TemplateHash string `yaml:"template_hash" mapstructure:"template_hash"`
	PrimaryHash  string `yaml:"primary_hash" mapstructure:"primary_hash"`
	SymbolHash   string `yaml:"symbol_hash" mapstructure:"symbol_hash"`
	AltIDHash    string `yaml:"alt_id_hash" mapstructure:"alt_id_hash"`

	// AtomicIndexWrites writes an instrument's index entries in one MULTI/EXEC.
	AtomicIndexWrites bool `yaml:"atomic_index_writes" mapstructure:"atomic_index_writes"`

	// WritesPerSecond throttles HSET calls across all workers (0 = unlimited).
	WritesPerSecond float64 `yaml:"writes_per_second" mapstructure:"writes_per_second"`
}

// Default index hash names.
const (
	DefaultTemplateHash = "EXLCache"
	DefaultPrimaryHash  = "RICCache"
	DefaultSymbolHash   = "SYMBOLCache"
	DefaultAltIDHash    = "ISINCache"
)

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}

	// Strip redis:// or rediss:// scheme prefix if present (for testcontainers compatibility)
	c.Address = strings.TrimPrefix(c.Address, "redis://")
	c.Address = strings.TrimPrefix(c.Address, "rediss://")

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.TemplateHash == "" {
		c.TemplateHash = DefaultTemplateHash
	}
	if c.PrimaryHash == "" {
		c.PrimaryHash = DefaultPrimaryHash
	}
	if c.SymbolHash == "" {
		c.SymbolHash = DefaultSymbolHash
	}
	if c.AltIDHash == "" {
		c.AltIDHash = DefaultAltIDHash
	}
	return c
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, config Config) (*Cache, error) {
	config = config.WithDefaults()

	// Create Redis client with connection pool
	client := redis.NewClient(&redis.Options{
		Addr:            config.Address,
		Password:        config.Password,
		DB:              config.DB,
		MaxRetries:      config.MaxRetries,
		PoolSize:        config.PoolSize,
		ConnMaxIdleTime: config.ConnMaxIdleTime,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, exl.NewError(exl.ErrorCodeCacheUnavailable, "Failed to connect to Redis").
			WithContext("address", config.Address).
			WithCause(err)
	}

	c := &Cache{
		client: client,
		config: config,
	}
	if config.WritesPerSecond > 0 {
		// Burst must cover one instrument's index writes.
		burst := int(config.WritesPerSecond)
		if burst < maxIndexWrites {
			burst = maxIndexWrites
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.WritesPerSecond), burst)
	}
	return c, nil
}

// Config returns the effective configuration
func (c *Cache) Config() Config {
	return c.config
}

// Close releases the connection pool
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// WriteTemplate stores the template header under its name in the template hash.
func (c *Cache) WriteTemplate(ctx context.Context, tpl exl.Template) error {
	payload, err := exl.Encode(tpl.Header)
	if err != nil {
		return err
	}

	if err := c.wait(ctx, 1); err != nil {
		return exl.ErrCacheUnavailable(c.config.TemplateHash, err)
	}
	if err := c.client.HSet(ctx, c.config.TemplateHash, tpl.Name, payload).Err(); err != nil {
		return exl.ErrCacheUnavailable(c.config.TemplateHash, err).
			WithContext("template", tpl.Name)
	}
	return nil
}

// maxIndexWrites is the number of hashes one instrument can be written to.
const maxIndexWrites = 3

// indexEntry is one HSET of an instrument payload.
type indexEntry struct {
	hash  string
	field string
}

// WriteInstrument stores the instrument under its RIC and symbol, and under
// its ISIN when the record has one. Both required keys are checked before
// anything is written.
func (c *Cache) WriteInstrument(ctx context.Context, inst exl.Instrument) error {
	ric, ok := inst.KeyField(exl.FieldRIC)
	if !ok {
		return exl.ErrMissingKeyField(exl.FieldRIC)
	}
	symbol, ok := inst.KeyField(exl.FieldSymbol)
	if !ok {
		return exl.ErrMissingKeyField(exl.FieldSymbol).WithContext("ric", ric)
	}

	payload, err := exl.Encode(inst.Fields)
	if err != nil {
		return err
	}

	entries := []indexEntry{
		{hash: c.config.PrimaryHash, field: ric},
		{hash: c.config.SymbolHash, field: symbol},
	}
	if isin, ok := inst.AltID(); ok {
		entries = append(entries, indexEntry{hash: c.config.AltIDHash, field: isin})
	}

	if c.config.AtomicIndexWrites {
		return c.writeAtomic(ctx, ric, entries, payload)
	}

	for _, e := range entries {
		if err := c.wait(ctx, 1); err != nil {
			return exl.ErrCacheUnavailable(e.hash, err).WithContext("ric", ric)
		}
		if err := c.client.HSet(ctx, e.hash, e.field, payload).Err(); err != nil {
			return exl.ErrCacheUnavailable(e.hash, err).WithContext("ric", ric)
		}
	}
	return nil
}

func (c *Cache) writeAtomic(ctx context.Context, ric string, entries []indexEntry, payload []byte) error {
	if err := c.wait(ctx, len(entries)); err != nil {
		return exl.ErrCacheUnavailable(entries[0].hash, err).WithContext("ric", ric)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.HSet(ctx, e.hash, e.field, payload)
		}
		return nil
	})
	if err != nil {
		return exl.ErrCacheUnavailable(entries[0].hash, err).
			WithContext("ric", ric).
			WithContext("atomic", true)
	}
	return nil
}

func (c *Cache) wait(ctx context.Context, n int) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("write throttle: %w", err)
	}
	return nil
}
