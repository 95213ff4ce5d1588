package cryptox

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/chapterhub/internal/common"
)

// Hasher runs verification and hashing with bounded parallelism so a burst
// of logins cannot occupy every core. Callers waiting for a slot give up
// when their context ends.
type Hasher struct {
	sem    *semaphore.Weighted
	params Params
}

// NewHasher allows up to concurrency simultaneous hash operations; zero or
// less means GOMAXPROCS.
func NewHasher(concurrency int64, p Params) *Hasher {
	if concurrency <= 0 {
		concurrency = int64(runtime.GOMAXPROCS(0))
	}
	return &Hasher{sem: semaphore.NewWeighted(concurrency), params: p}
}

func (h *Hasher) Verify(ctx context.Context, password []byte, verifier string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	return Verify(password, verifier)
}

// Hash produces a modern verifier. The caller's password buffer is left
// untouched; the internal copy is wiped afterwards.
func (h *Hasher) Hash(ctx context.Context, password []byte) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	buf := append([]byte(nil), password...)
	defer common.WipeByteArray(buf)
	return HashPassword(buf, h.params)
}
