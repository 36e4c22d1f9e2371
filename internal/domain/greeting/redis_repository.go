package greeting

import (
	"context"
	"encoding/json"
	"strconv"

	re "github.com/redis/go-redis/v9"

	"cqrskit/internal/infra/redis"
)

// RedisRepository is the Store shared by every process pointing at the same
// Redis database. Keys live under prefix.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "greeting:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) countsKey() string { return r.prefix + "counts" }
func (r *RedisRepository) notesKey() string  { return r.prefix + "notes" }
func (r *RedisRepository) auditKey() string  { return r.prefix + "audit" }

func (r *RedisRepository) Record(ctx context.Context, name, note string) (int, error) {
	n, err := r.client.HIncrBy(ctx, r.countsKey(), name, 1)
	if err != nil {
		return 0, err
	}
	if note != "" {
		if err := r.client.HSet(ctx, r.notesKey(), map[string]interface{}{name: note}); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (r *RedisRepository) Count(ctx context.Context, name string) (int, error) {
	v, err := r.client.HGet(ctx, r.countsKey(), name)
	if redis.IsNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (r *RedisRepository) LastNote(ctx context.Context, name string) (string, error) {
	v, err := r.client.HGet(ctx, r.notesKey(), name)
	if redis.IsNil(err) {
		return "", nil
	}
	return v, err
}

func (r *RedisRepository) Forget(ctx context.Context, name string) error {
	return r.client.Tx(ctx, func(pipe re.Pipeliner) error {
		pipe.HDel(ctx, r.countsKey(), name)
		pipe.HDel(ctx, r.notesKey(), name)
		return nil
	})
}

func (r *RedisRepository) Append(ctx context.Context, e AuditEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.auditKey(), string(b))
}

func (r *RedisRepository) Audit(ctx context.Context) ([]AuditEntry, error) {
	raw, err := r.client.LRange(ctx, r.auditKey(), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(raw))
	for _, s := range raw {
		var e AuditEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear removes every key of this repository.
func (r *RedisRepository) Clear(ctx context.Context) error {
	return r.client.Delete(ctx, r.countsKey(), r.notesKey(), r.auditKey())
}
