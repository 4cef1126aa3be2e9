package breaker

import (
	"sync"
	"time"
)

// Hosts keeps one Breaker per mirror host, created lazily.
type Hosts struct {
	cfg     Config
	nowFunc func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewHosts creates an empty host breaker set.
func NewHosts(cfg Config) *Hosts {
	return &Hosts{
		cfg:      cfg,
		nowFunc:  time.Now,
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker of host.
func (h *Hosts) For(host string) *Breaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.breakers[host]; ok {
		return b
	}
	b := New(h.cfg)
	b.nowFunc = h.nowFunc
	h.breakers[host] = b
	return b
}

// Pick returns the first host, starting at index start and wrapping around,
// whose breaker allows a request. When every breaker is open it returns
// hosts[start] so the attempt still goes somewhere.
func (h *Hosts) Pick(hosts []string, start int) string {
	n := len(hosts)
	if n == 0 {
		return ""
	}
	start %= n
	for i := range n {
		host := hosts[(start+i)%n]
		if h.For(host).Allow() {
			return host
		}
	}
	return hosts[start]
}

// Record feeds the outcome of a request to host's breaker.
func (h *Hosts) Record(host string, ok bool) {
	if host == "" {
		return
	}
	if ok {
		h.For(host).OnSuccess()
	} else {
		h.For(host).OnFailure()
	}
}
