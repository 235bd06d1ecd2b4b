package rate

import "errors"

// ErrRedisUnavailable wraps counter failures.
var ErrRedisUnavailable = errors.New("redis unavailable")
