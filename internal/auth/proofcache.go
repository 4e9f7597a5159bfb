// Package auth handles room authorization: short-lived proofs, remembered
// room passwords and the challenge/retry path of room requests.
package auth

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"roomsync/internal/models"
)

// ProofSafetyMargin is how long before its expiry a proof stops being reused.
const ProofSafetyMargin = 500 * time.Millisecond

// ProofCache holds at most one proof per room.
type ProofCache struct {
	mu     sync.Mutex
	clock  clock.Clock
	proofs map[string]models.Proof
}

func NewProofCache(clk clock.Clock) *ProofCache {
	if clk == nil {
		clk = clock.New()
	}
	return &ProofCache{clock: clk, proofs: make(map[string]models.Proof)}
}

// Get returns the cached proof for room while it is still usable.
func (c *ProofCache) Get(room string) (models.Proof, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.proofs[room]
	if !ok || p.Token == "" || p.ExpiresAt == 0 {
		return models.Proof{}, false
	}
	if c.clock.Now().UnixMilli() >= p.ExpiresAt-ProofSafetyMargin.Milliseconds() {
		return models.Proof{}, false
	}
	return p, true
}

func (c *ProofCache) Set(room string, p models.Proof) {
	c.mu.Lock()
	c.proofs[room] = p
	c.mu.Unlock()
}

func (c *ProofCache) Invalidate(room string) {
	c.mu.Lock()
	delete(c.proofs, room)
	c.mu.Unlock()
}

func (c *ProofCache) Clear() {
	c.mu.Lock()
	c.proofs = make(map[string]models.Proof)
	c.mu.Unlock()
}

func (c *ProofCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.proofs)
}
