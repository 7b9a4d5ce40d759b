package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

// LinkCache stores resolved links as JSON under "<prefix>:<code>".
type LinkCache struct {
	rdb    *goredis.Client
	prefix string
}

type Option func(*LinkCache)

func WithPrefix(prefix string) Option {
	return func(c *LinkCache) { c.prefix = strings.Trim(prefix, ":") }
}

func NewLinkCache(rdb *goredis.Client, opts ...Option) *LinkCache {
	c := &LinkCache{
		rdb:    rdb,
		prefix: "shortlink",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *LinkCache) key(code string) string {
	return c.prefix + ":" + code
}

func (c *LinkCache) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	b, err := c.rdb.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var link domain.ShortLink
	if err := json.Unmarshal(b, &link); err != nil {
		return nil, fmt.Errorf("decode cached link %s: %w", code, err)
	}
	return &link, nil
}

func (c *LinkCache) Set(ctx context.Context, link *domain.ShortLink, ttl time.Duration) error {
	b, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(link.Code), b, ttl).Err()
}

func (c *LinkCache) Delete(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, c.key(code)).Err()
}

var _ ports.LinkCache = (*LinkCache)(nil)
