package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "auth"

// rotateScript swaps KEYS[1] for KEYS[2] only if KEYS[1] still exists, so
// concurrent rotations of the same token race on the DEL and exactly one
// wins. KEYS[3] is the owning user's index set.
//
// ARGV: userID, ttl in ms (0 = none), old fingerprint, new fingerprint.
var rotateScript = redis.NewScript(`
if redis.call("DEL", KEYS[1]) == 0 then
	return 0
end
redis.call("SREM", KEYS[3], ARGV[3])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("SET", KEYS[2], ARGV[1], "PX", ttl)
else
	redis.call("SET", KEYS[2], ARGV[1])
end
redis.call("SADD", KEYS[3], ARGV[4])
return 1
`)

// revokeScript deletes KEYS[1] and drops ARGV[2] from the index KEYS[2], as
// long as the token still belongs to ARGV[1]. Both keys are passed in so the
// script declares everything it touches.
var revokeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[2])
return 1
`)

// Redis keeps registered tokens as "<prefix>:rt:<fingerprint>" keys holding
// the user id, with a PX expiry when the token expires. Each user has an index
// set "<prefix>:user:<id>" so all their tokens can be dropped at once.
//
// The scripts touch token and index keys that hash to different cluster
// slots, so only a single node (or a sentinel backed) *redis.Client is
// accepted.
type Redis struct {
	client *redis.Client
	prefix string

	// Now is overridable for tests.
	Now func() time.Time
}

var _ Registry = (*Redis)(nil)

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Redis) tokenKey(fp string) string {
	return r.prefix + ":rt:" + fp
}

func (r *Redis) userPrefix() string {
	return r.prefix + ":user:"
}

func (r *Redis) userKey(userID string) string {
	return r.userPrefix() + userID
}

// ttl is the remaining lifetime in ms. Zero means no expiry; an entry that
// has already expired gets the smallest positive ttl.
func (r *Redis) ttl(e Entry) int64 {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ms := e.ExpiresAt.Sub(r.Now()).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

func (r *Redis) Register(ctx context.Context, token string, e Entry) error {
	fp := fingerprint(token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(fp), e.UserID, time.Duration(r.ttl(e))*time.Millisecond)
		pipe.SAdd(ctx, r.userKey(e.UserID), fp)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis register: %w", err)
	}
	return nil
}

func (r *Redis) IsValid(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.tokenKey(fingerprint(token))).Result()
	if err != nil {
		return false, fmt.Errorf("redis lookup: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Revoke(ctx context.Context, token string) error {
	fp := fingerprint(token)
	tokenKey := r.tokenKey(fp)

	owner, err := r.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}

	// A rotation between GET and the script leaves the key gone, the script
	// then does nothing.
	keys := []string{tokenKey, r.userKey(owner)}
	if err := revokeScript.Run(ctx, r.client, keys, owner, fp).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (r *Redis) Rotate(ctx context.Context, old, next string, e Entry) error {
	oldFP, nextFP := fingerprint(old), fingerprint(next)
	keys := []string{r.tokenKey(oldFP), r.tokenKey(nextFP), r.userKey(e.UserID)}

	ok, err := rotateScript.Run(ctx, r.client, keys, e.UserID, r.ttl(e), oldFP, nextFP).Int()
	if err != nil {
		return fmt.Errorf("redis rotate: %w", err)
	}
	if ok == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (r *Redis) RevokeUser(ctx context.Context, userID string) error {
	userKey := r.userKey(userID)
	fps, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis list user tokens: %w", err)
	}

	// A token registered between SMEMBERS and DEL keeps its key but loses its
	// index entry; it still expires on its own TTL.
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, fp := range fps {
			pipe.Del(ctx, r.tokenKey(fp))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis revoke user: %w", err)
	}
	return nil
}

// Prune drops index entries whose token keys have expired. Token keys expire
// on their own.
func (r *Redis) Prune(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.userPrefix()+"*", 100).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		fps, err := r.client.SMembers(ctx, userKey).Result()
		if err != nil {
			return fmt.Errorf("redis prune: %w", err)
		}
		for _, fp := range fps {
			n, err := r.client.Exists(ctx, r.tokenKey(fp)).Result()
			if err != nil {
				return fmt.Errorf("redis prune: %w", err)
			}
			if n == 0 {
				r.client.SRem(ctx, userKey, fp)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis prune: %w", err)
	}
	return nil
}

// Ping checks the connection, it backs the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
