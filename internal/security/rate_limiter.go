package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/veiltext/veiltext/internal/config"
)

// RateLimiter enforces a per-client-IP request budget using token buckets.
type RateLimiter struct {
	config  *config.SecurityConfig
	clients map[string]*clientLimiter
	mu      sync.Mutex
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter from the security configuration.
func NewRateLimiter(cfg *config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether a request from the given client IP is within budget.
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.RateLimit.Enabled {
		return true
	}
	return r.getLimiter(clientIP).Allow()
}

// getLimiter returns the client's limiter, creating it on first sight.
func (r *RateLimiter) getLimiter(clientIP string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[clientIP]; ok {
		client.lastSeen = time.Now()
		return client.limiter
	}

	limit := rate.Limit(float64(r.config.RateLimit.RequestsPerMin) / 60.0)
	burst := r.config.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	client := &clientLimiter{
		limiter:  rate.NewLimiter(limit, burst),
		lastSeen: time.Now(),
	}
	r.clients[clientIP] = client
	return client.limiter
}

// CleanupStaleClients drops limiters that have been idle longer than maxIdle,
// bounding the map for long-running processes.
func (r *RateLimiter) CleanupStaleClients(maxIdle time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for ip, client := range r.clients {
		if client.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
		}
	}
}

// StartCleanupRoutine periodically removes stale client limiters.
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			r.CleanupStaleClients(time.Hour)
		}
	}()
}

// ActiveClients returns the number of tracked client IPs.
func (r *RateLimiter) ActiveClients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
