package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/localmart/marketplace-service/internal/domain"
)

type Client struct {
	rdb *goredis.Client
}

// New parses a redis:// URL and opens a client. The connection is not
// verified here; call Ping during bootstrap.
func New(url string) (*Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, domain.ErrRedisUnavailable(err)
	}
	return &Client{rdb: goredis.NewClient(opts)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	// short ping timeout is good in bootstrap
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
