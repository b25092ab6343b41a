package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed from crypto/rand; Monotonic keeps IDs minted in the same
	// millisecond increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID stamped with the current time. Used for run IDs.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with t, so imported trades sort by their
// execution time rather than their import time.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	if t.Before(time.UnixMilli(0)) {
		t = time.UnixMilli(0)
	}
	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// only possible if entropy fails or t overflows the 48-bit clock
		panic(err)
	}
	return id.String()
}
