// Package streambuf wraps the Redis Stream, dedup, and cooldown
// primitives shared by the Ingestion Gateway, Telemetry Worker Pool, and
// Alert Evaluator (§4.G–§4.I). One Redis client is shared across the
// process per the resource-model policy.
package streambuf

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
)

const (
	// StreamKey is the bounded telemetry buffer between ingest and the
	// worker pool.
	StreamKey = "telemetry:stream"
	// ConsumerGroup is the sole consumer group on StreamKey.
	ConsumerGroup = "telemetry-workers"
	// MaxLen bounds the stream; on sustained overload the oldest entries
	// are trimmed, the documented back-pressure valve.
	MaxLen = 100000

	dedupTTL = 60 * time.Second
)

// Client wraps go-redis with a circuit breaker, grounded on the same
// gobreaker settings shape used for the Postgres pool.
type Client struct {
	rdb *redis.Client
	cb  *gobreaker.CircuitBreaker
	log *logging.Logger
}

func New(addr, password string, db int, log *logging.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	log = log.WithComponent("streambuf")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})

	return &Client{rdb: rdb, cb: cb, log: log}
}

func (c *Client) Close() error { return c.rdb.Close() }

// Raw exposes the underlying client for commands not wrapped here
// (XREADGROUP, XACK, XAUTOCLAIM need full control over blocking/options).
func (c *Client) Raw() *redis.Client { return c.rdb }

// TryDedup attempts SETNX telemetry:dedup:{messageID} with a 60s TTL.
// Returns true if this is the first time messageID has been seen.
func (c *Client) TryDedup(ctx context.Context, messageID string) (bool, error) {
	res, err := c.cb.Execute(func() (any, error) {
		return c.rdb.SetNX(ctx, "telemetry:dedup:"+messageID, 1, dedupTTL).Result()
	})
	if err != nil {
		return false, errors.Wrap(err, errors.KindUnavailable, "checking telemetry dedup key")
	}
	return res.(bool), nil
}

// TryCooldown attempts SETNX alert_cd:{deviceID}:{ruleName} with the
// rule's own TTL. Returns true if the alert is clear to fire.
func (c *Client) TryCooldown(ctx context.Context, deviceID, ruleName string, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}
	res, err := c.cb.Execute(func() (any, error) {
		return c.rdb.SetNX(ctx, "alert_cd:"+deviceID+":"+ruleName, 1, cooldown).Result()
	})
	if err != nil {
		return false, errors.Wrap(err, errors.KindUnavailable, "checking alert cooldown key")
	}
	return res.(bool), nil
}

// XAdd appends one entry to the bounded telemetry stream.
func (c *Client) XAdd(ctx context.Context, fields map[string]any) (string, error) {
	res, err := c.cb.Execute(func() (any, error) {
		return c.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamKey,
			MaxLen: MaxLen,
			Approx: true,
			Values: fields,
		}).Result()
	})
	if err != nil {
		return "", errors.Wrap(err, errors.KindUnavailable, "appending to telemetry stream")
	}
	return res.(string), nil
}

// EnsureGroup creates the consumer group if it does not already exist.
func (c *Client) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return errors.Wrap(err, errors.KindInternal, "creating telemetry consumer group")
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
