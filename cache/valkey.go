package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"sentilyzer/monitoring"
)

const keyPrefix = "sentilyzer:prediction:"

// Valkey shares predictions between server replicas. Lookups that fail are treated
// as misses; the cache never fails a request.
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewValkey connects to cfg.ValkeyAddress and fails fast when it is unreachable.
func NewValkey(ctx context.Context, cfg Config, logger *zap.Logger) (*Valkey, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ValkeyAddress == "" {
		return nil, fmt.Errorf("valkey cache needs an address")
	}
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.ValkeyAddress},
		Password:         cfg.ValkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.ValkeyTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	logger.Info("connected to valkey", zap.String("address", cfg.ValkeyAddress))

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Valkey{client: client, ttl: ttl, logger: logger}, nil
}

// Get treats every backend error as a miss.
func (c *Valkey) Get(ctx context.Context, key string) (Entry, bool) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(keyPrefix+key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			monitoring.CacheRequestsTotal.WithLabelValues(BackendValkey, "miss").Inc()
		} else {
			monitoring.CacheRequestsTotal.WithLabelValues(BackendValkey, "error").Inc()
			c.logger.Warn("valkey get failed", zap.Error(err))
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		monitoring.CacheRequestsTotal.WithLabelValues(BackendValkey, "error").Inc()
		return Entry{}, false
	}
	monitoring.CacheRequestsTotal.WithLabelValues(BackendValkey, "hit").Inc()
	return entry, true
}

// Add stores entry with the configured TTL. Failures are logged and dropped.
func (c *Valkey) Add(ctx context.Context, key string, entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	completed := []valkey.Completed{
		c.client.B().Set().Key(keyPrefix + key).Value(string(payload)).Build(),
		c.client.B().Expire().Key(keyPrefix + key).Seconds(int64(c.ttl / time.Second)).Build(),
	}
	for _, res := range c.client.DoMulti(ctx, completed...) {
		if err := res.Error(); err != nil {
			c.logger.Warn("valkey set failed", zap.Error(err))
			return
		}
	}
}

func (c *Valkey) Close() {
	c.client.Close()
}
