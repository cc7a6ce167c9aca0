package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	principalTTL  = 5 * time.Minute
	attendanceTTL = 15 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps the redis connection used for the principal auth fast path
// and the attendance summary cache.
type Client struct {
	client *redis.Client
}

func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{client: rdb}, nil
}

// principalKey hashes the raw bearer token so tokens never land in redis
// verbatim.
func principalKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "principal:" + hex.EncodeToString(sum[:])
}

// GetPrincipal returns the cached (userID, role) for a bearer token.
func (c *Client) GetPrincipal(ctx context.Context, token string) (int64, string, error) {
	val, err := c.client.Get(ctx, principalKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, "", fmt.Errorf("principal not cached")
		}
		return 0, "", fmt.Errorf("cache lookup error: %w", err)
	}

	id, role, ok := strings.Cut(val, ":")
	if !ok {
		return 0, "", fmt.Errorf("malformed principal cache entry")
	}

	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, role, nil
}

// SetPrincipal caches a resolved principal for a short TTL.
func (c *Client) SetPrincipal(ctx context.Context, token string, userID int64, role string) {
	val := fmt.Sprintf("%d:%s", userID, role)
	c.client.Set(ctx, principalKey(token), val, principalTTL)
}

func attendanceKey(eventID int64) string {
	return fmt.Sprintf("attendance:%d", eventID)
}

// GetAttendanceRaw returns the cached attendance summary as raw JSON, so the
// handler can serve it without a marshal round trip.
func (c *Client) GetAttendanceRaw(ctx context.Context, eventID int64) ([]byte, error) {
	data, err := c.client.Get(ctx, attendanceKey(eventID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("attendance not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// SetAttendanceRaw caches an attendance summary payload briefly. Scan volume
// at the door makes a short TTL acceptable for this read-only view.
func (c *Client) SetAttendanceRaw(ctx context.Context, eventID int64, payload []byte) {
	c.client.Set(ctx, attendanceKey(eventID), payload, attendanceTTL)
}

// InvalidateAttendance drops the cached summary after a scan mutates it.
func (c *Client) InvalidateAttendance(ctx context.Context, eventID int64) {
	c.client.Del(ctx, attendanceKey(eventID))
}

func (c *Client) Close() error {
	return c.client.Close()
}
