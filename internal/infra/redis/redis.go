package redis

import (
	"context"

	re "github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Client struct {
	client *re.Client
}

func NewClient(cfg Config) *Client {
	rdb := re.NewClient(&re.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{client: rdb}
}

// Ping checks the connection.
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Client) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *Client) Close() error {
	return r.client.Close()
}

// OnApplicationBootstrap fails startup when the server is unreachable.
func (r *Client) OnApplicationBootstrap(ctx context.Context) error {
	return r.Ping(ctx)
}

func (r *Client) OnApplicationShutdown(ctx context.Context) error {
	return r.Close()
}

// IsNil reports a missing key or field.
func IsNil(err error) bool {
	return err == re.Nil
}
