package auth

import "sync"

// Credentials keeps room passwords from two sources: the session (typed this
// run, not remembered) and the account (saved server-side). A session entry
// shadows the account entry for the same room.
type Credentials struct {
	mu      sync.RWMutex
	session map[string]string
	account map[string]string
}

func NewCredentials() *Credentials {
	return &Credentials{
		session: make(map[string]string),
		account: make(map[string]string),
	}
}

func (c *Credentials) Lookup(room string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.session[room]; ok && p != "" {
		return p, true
	}
	p, ok := c.account[room]
	return p, ok && p != ""
}

func (c *Credentials) SetSession(room, password string) {
	c.mu.Lock()
	c.session[room] = password
	c.mu.Unlock()
}

func (c *Credentials) SetAccount(room, password string) {
	c.mu.Lock()
	c.account[room] = password
	c.mu.Unlock()
}

// ReplaceAccount swaps in the full account map fetched from the server.
func (c *Credentials) ReplaceAccount(passwords map[string]string) {
	m := make(map[string]string, len(passwords))
	for k, v := range passwords {
		m[k] = v
	}
	c.mu.Lock()
	c.account = m
	c.mu.Unlock()
}

// Forget drops both entries for room.
func (c *Credentials) Forget(room string) {
	c.mu.Lock()
	delete(c.session, room)
	delete(c.account, room)
	c.mu.Unlock()
}

func (c *Credentials) ClearSession() {
	c.mu.Lock()
	c.session = make(map[string]string)
	c.mu.Unlock()
}
