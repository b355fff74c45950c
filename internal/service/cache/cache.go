package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL. The read
// facade keeps marshaled response payloads in it so hot endpoints skip
// re-snapshotting every object on every poll.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
