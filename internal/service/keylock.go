package service

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const lockStripes = 64

// stripedLock serializes work per key with a fixed number of mutexes.
// Two keys may share a stripe; that only costs parallelism.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) lock(key uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(key[:])
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
