package errx

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// WrapRedis classifies a go-redis error: redis.Nil becomes NotFound,
// everything else is an upstream failure of the cache backend.
func WrapRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return NotFound(err, RedisNotFoundMessage)
	default:
		return Upstream(err, RedisErrorMessage)
	}
}
