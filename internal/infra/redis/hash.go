package redis

import "context"

// HSet sets hash fields.
func (r *Client) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return r.client.HSet(ctx, key, values).Err()
}

// HGet reads one field; a missing field gives an error IsNil accepts.
func (r *Client) HGet(ctx context.Context, key, field string) (string, error) {
	return r.client.HGet(ctx, key, field).Result()
}

// HIncrBy adds incr to a numeric field and returns the new value.
func (r *Client) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	return r.client.HIncrBy(ctx, key, field, incr).Result()
}
