package realtime

import "sync"

// Presence tracks which identities currently hold at least one live
// connection. Strictly in-process and advisory: entries die with the process,
// and a multi-instance deployment would need a shared broker instead.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{} // userKey -> set of connection ids
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{conns: make(map[string]map[string]struct{})}
}

// Register records a connection for the identity key.
func (p *Presence) Register(userKey, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.conns[userKey]
	if set == nil {
		set = make(map[string]struct{})
		p.conns[userKey] = set
	}
	set[connID] = struct{}{}
}

// Unregister drops a connection; when the identity's set becomes empty the
// key is removed entirely and the identity counts as fully offline.
func (p *Presence) Unregister(userKey, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.conns[userKey]
	if set == nil {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userKey)
	}
}

// IsOnline reports whether the identity has at least one live connection.
func (p *Presence) IsOnline(userKey string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userKey]) > 0
}

// OnlineCount returns the number of distinct identities online.
func (p *Presence) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
