// Package runlock provides a redis-backed mutual exclusion lease so only one
// process runs a given job at a time.
package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld is returned when another holder owns the lease.
	ErrHeld = errors.New("runlock: lease held by another holder")
	// ErrNotHeld is returned on release when the lease expired or changed hands.
	ErrNotHeld = errors.New("runlock: lease not held")
)

const defaultTTL = 5 * time.Minute

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type tokenGenerator interface {
	Generate() string
}

// Locker acquires leases.
type Locker interface {
	// Acquire returns a release func, ErrHeld, or a redis error.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Redis is a Locker storing leases under "runlock:<key>".
type Redis struct {
	client redis.UniversalClient
	tokens tokenGenerator
	prefix string
}

// New returns a redis Locker. tokens must generate unique values per call.
func New(client redis.UniversalClient, tokens tokenGenerator) *Redis {
	return &Redis{client: client, tokens: tokens, prefix: "runlock:"}
}

// Acquire takes the lease with SET NX PX. A ttl <= 0 uses five minutes so a
// crashed holder cannot keep the lease forever.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	fk := r.prefix + key
	token := r.tokens.Generate()

	ok, err := r.client.SetNX(ctx, fk, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{fk}, token).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}
