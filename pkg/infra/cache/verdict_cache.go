package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	VerdictKeyPattern = "verdict:%s:%s"
	verdictKeyGlob    = "verdict:*"
	scanBatch         = 500

	defaultTTL      = time.Hour
	defaultLocalTTL = time.Minute
)

// VerdictCache stores responses keyed by a digest of kind and content. It
// is best effort: lookups and writes that fail are logged and treated as
// misses.
//
//go:generate mockery --name=VerdictCache --dir=. --output=./mocks --filename=verdict_cache_mock.go --case=underscore --with-expecter
type VerdictCache interface {
	Get(ctx context.Context, kind moderation.Kind, content []byte) (*moderation.Response, bool)
	Set(ctx context.Context, kind moderation.Kind, content []byte, resp *moderation.Response)
	Invalidate(ctx context.Context) (int, error)
}

type verdictCache struct {
	client    Client
	local     *TTLMap[*moderation.Response]
	ttl       time.Duration
	namespace string
	logger    *logrus.Logger
}

// NewVerdictCache keys entries under namespace, which should change
// whenever thresholds or providers change so stale verdicts are not served.
func NewVerdictCache(client Client, config Config, namespace string, logger *logrus.Logger) VerdictCache {
	if config.TTL <= 0 {
		config.TTL = defaultTTL
	}
	if config.LocalTTL <= 0 {
		config.LocalTTL = defaultLocalTTL
	}
	return &verdictCache{
		client:    client,
		local:     NewTTLMap[*moderation.Response](config.LocalTTL),
		ttl:       config.TTL,
		namespace: namespace,
		logger:    logger,
	}
}

func VerdictKey(namespace string, kind moderation.Kind, content []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(content)
	return fmt.Sprintf(VerdictKeyPattern, kind, hex.EncodeToString(h.Sum(nil)))
}

func (c *verdictCache) Get(ctx context.Context, kind moderation.Kind, content []byte) (*moderation.Response, bool) {
	key := VerdictKey(c.namespace, kind, content)
	if resp, ok := c.local.Get(key); ok {
		return cachedCopy(resp), true
	}

	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("verdict cache lookup failed")
		}
		return nil, false
	}
	resp := new(moderation.Response)
	if err := json.Unmarshal([]byte(raw), resp); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("discarding unreadable cached verdict")
		return nil, false
	}
	c.local.Set(key, resp)
	return cachedCopy(resp), true
}

// Set skips recovered failure verdicts so a transient provider outage is
// not remembered.
func (c *verdictCache) Set(ctx context.Context, kind moderation.Kind, content []byte, resp *moderation.Response) {
	if resp == nil || (resp.Details != nil && resp.Details.Failure != nil) {
		return
	}
	key := VerdictKey(c.namespace, kind, content)
	b, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode verdict for cache")
		return
	}
	if err := c.client.Set(ctx, key, string(b), c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("verdict cache write failed")
		return
	}
	c.local.Set(key, resp)
}

func cachedCopy(resp *moderation.Response) *moderation.Response {
	cp := *resp
	cp.Cached = true
	return &cp
}

// Invalidate removes every stored verdict, local and remote, and returns
// how many remote keys were deleted.
func (c *verdictCache) Invalidate(ctx context.Context) (int, error) {
	c.local.Clear()
	rdb := c.client.RedisClient()
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, verdictKeyGlob, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scan verdict keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete verdict keys: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.logger.WithField("removed", removed).Info("verdict cache invalidated")
	return removed, nil
}
