package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/matching"
	"github.com/spigell/rnd-matcher/internal/metrics"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

const (
	keyPrefix         = "rnd-matcher:match:"
	defaultTTL        = 24 * time.Hour
	connectionTimeout = 2 * time.Second
)

// ErrEmptyAddress is returned when the redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// KeyInput is everything a cached result depends on. Settings holds the
// remaining configuration that shapes a result (weights, gate config, which
// stages run); it is hashed as JSON.
type KeyInput struct {
	Organization *funding.Organization
	Programs     []*funding.Program
	Options      matching.Options
	Settings     any
}

// keyDigest is the canonical form hashed into a key. Slices are sorted so
// that input order never changes the key.
type keyDigest struct {
	Organization     *funding.Organization `json:"organization"`
	Programs         []*funding.Program    `json:"programs"`
	Mode             string                `json:"mode"`
	TopK             int                   `json:"topK"`
	MinScore         float64               `json:"minScore"`
	ExcludedIDs      []string              `json:"excludedIds"`
	ExcludedAgencies []string              `json:"excludedAgencies"`
	Day              string                `json:"day"`
	Settings         any                   `json:"settings"`
}

// Key builds the cache key. The day of Options.Now is part of the key because
// deadline urgency changes daily; the time of day is not.
func Key(in KeyInput) (string, error) {
	if in.Organization == nil {
		return "", errors.New("organization is required")
	}

	programs := make([]*funding.Program, 0, len(in.Programs))
	for _, p := range in.Programs {
		if p != nil {
			programs = append(programs, p)
		}
	}
	sort.SliceStable(programs, func(i, j int) bool { return programs[i].ID < programs[j].ID })

	opts := in.Options
	if opts.Mode == "" {
		opts.Mode = scoring.ModeStandard
	}
	if opts.TopK == 0 {
		opts.TopK = matching.DefaultTopK
	}

	digest := keyDigest{
		Organization:     in.Organization,
		Programs:         programs,
		Mode:             string(opts.Mode),
		TopK:             opts.TopK,
		MinScore:         opts.MinScore,
		ExcludedIDs:      sortedCopy(opts.ExcludedIDs),
		ExcludedAgencies: sortedCopy(opts.ExcludedAgencies),
		Day:              opts.Now.UTC().Format(time.DateOnly),
		Settings:         in.Settings,
	}

	h := sha256.New()
	if err := json.NewEncoder(h).Encode(digest); err != nil {
		return "", fmt.Errorf("failed to hash cache key: %w", err)
	}
	return keyPrefix + in.Organization.ID + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func sortedCopy(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// MatchCache stores match results in redis.
type MatchCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

func New(client redis.Cmdable, ttl time.Duration, collector *metrics.Collector, logger *zap.Logger) *MatchCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchCache{client: client, ttl: ttl, metrics: collector, logger: logger}
}

// Dial connects to redis and checks the connection.
func Dial(addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get returns the cached result for key. A miss is not an error.
func (c *MatchCache) Get(ctx context.Context, key string) (*matching.Result, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.ObserveCache(false, nil)
		return nil, false, nil
	}
	if err != nil {
		c.metrics.ObserveCache(false, err)
		return nil, false, fmt.Errorf("failed to get cached matches: %w", err)
	}

	var result matching.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.metrics.ObserveCache(false, err)
		return nil, false, fmt.Errorf("failed to unmarshal cached matches: %w", err)
	}

	c.metrics.ObserveCache(true, nil)
	c.logger.Debug("match cache hit", zap.String("key", key), zap.String("run_id", result.RunID))
	return &result, true, nil
}

// Put stores result under key, replacing any earlier entry.
func (c *MatchCache) Put(ctx context.Context, key string, result *matching.Result) error {
	if result == nil {
		return errors.New("result is required")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache matches: %w", err)
	}

	c.logger.Debug("match cache stored", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}
