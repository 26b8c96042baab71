package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shortlink/internal/types"

	"github.com/redis/go-redis/v9"
)

// Each link is a hash under <prefix>:link:<code>. Both writes run as Lua
// scripts so the existence check and the mutation happen in one step on the
// server, whichever process issues them.
var insertIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

var incrementAndTouchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('HINCRBY', KEYS[1], 'click_count', 1)
redis.call('HSET', KEYS[1], 'last_accessed_at', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

const (
	fieldTargetURL      = "target_url"
	fieldExpiresAt      = "expires_at"
	fieldClickCount     = "click_count"
	fieldOwnerID        = "owner_id"
	fieldLastAccessedAt = "last_accessed_at"
	fieldCreatedAt      = "created_at"
)

type Redis struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

func ConnectRedis(addr, password string, db int, opts ...RedisOption) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return NewRedis(rdb, opts...), nil
}

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "shortlink"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(code string) string {
	return r.prefix + ":link:" + code
}

func (r *Redis) InsertIfAbsent(ctx context.Context, link *types.ShortLink) (bool, error) {
	args := []any{
		fieldTargetURL, link.TargetURL,
		fieldClickCount, 0,
		fieldCreatedAt, formatTime(link.CreatedAt),
	}
	if link.ExpiresAt != nil {
		args = append(args, fieldExpiresAt, formatTime(*link.ExpiresAt))
	}
	if link.OwnerID != nil {
		args = append(args, fieldOwnerID, *link.OwnerID)
	}

	n, err := insertIfAbsentScript.Run(ctx, r.rdb, []string{r.key(link.Code)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Get(ctx context.Context, code string) (*types.ShortLink, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeLink(code, fields)
}

func (r *Redis) IncrementAndTouch(ctx context.Context, code string, now time.Time) (*types.ShortLink, error) {
	res, err := incrementAndTouchScript.Run(ctx, r.rdb, []string{r.key(code)}, formatTime(now)).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return decodeLink(code, fields)
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decodeLink(code string, fields map[string]string) (*types.ShortLink, error) {
	link := &types.ShortLink{
		Code:      code,
		TargetURL: fields[fieldTargetURL],
	}

	if v, ok := fields[fieldClickCount]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid click_count for %q: %w", code, err)
		}
		link.ClickCount = n
	}
	if v, ok := fields[fieldOwnerID]; ok {
		owner := v
		link.OwnerID = &owner
	}

	var err error
	if link.ExpiresAt, err = parseOptionalTime(fields, fieldExpiresAt); err != nil {
		return nil, err
	}
	if link.LastAccessedAt, err = parseOptionalTime(fields, fieldLastAccessedAt); err != nil {
		return nil, err
	}
	created, err := parseOptionalTime(fields, fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	if created != nil {
		link.CreatedAt = *created
	}
	return link, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(fields map[string]string, name string) (*time.Time, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}
