package queue

import "errors"

// errInvalidCapacity is returned by New when asked to build a
// zero-capacity queue.
var errInvalidCapacity = errors.New("queue: capacity must be at least 1")
