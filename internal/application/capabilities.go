package application

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Injected so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// IDSupplier supplies globally-unique opaque ids for new users.
type IDSupplier interface {
	NewID() string
}

// SystemClock is the production Clock, always UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDSupplier is the production IDSupplier.
type UUIDSupplier struct{}

func (UUIDSupplier) NewID() string { return uuid.NewString() }

// keyedMutex serializes read-modify-write cycles per user id. The store holds
// whole aggregates, so without this two concurrent mutations of the same user
// could interleave and drop one another's writes.
type keyedMutex struct {
	shards [64]sync.Mutex
}

func (k *keyedMutex) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &k.shards[h.Sum32()%uint32(len(k.shards))]
	mu.Lock()
	return mu.Unlock
}
