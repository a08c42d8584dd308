// Package reachability implements the cached TCP-22 liveness probe
// 4.2). The cache is a document-store-backed singleton, never an
// in-memory cache, per the design note that the reachability cache is
// process-wide and shared across workers via the document store.
// Concurrent scanning follows mpecarina-tmux-ssh-manager's
// net_collect.go worker-pool idiom.
package reachability

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/store"
)

const (
	defaultTTL           = 300 * time.Second
	probeDialTimeout     = 2 * time.Second
	probeConcurrency     = 16
)

// Prober answers "who can I reach from here right now?" using a
// 300-second-TTL document-store-backed cache.
type Prober struct {
	st  store.Store
	ttl time.Duration
}

func New(st store.Store, ttl time.Duration) *Prober {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Prober{st: st, ttl: ttl}
}

// Probe returns the set of IPs directly reachable from the worker,
// refreshing the cache when it is stale. Probing is best-effort:
// per-host dial errors are simply treated as "not reachable" and never
// abort the scan.
func (p *Prober) Probe(ctx context.Context) ([]string, error) {
	cache, err := p.st.GetReachabilityCache(ctx)
	if err == nil && time.Since(cache.UpdatedAt) < p.ttl {
		return cache.ReachableIPs, nil
	}
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	devices, err := p.st.ListDevicesByStatus(ctx, domain.StatusReady, domain.StatusScanning)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, d := range devices {
		if d.Host != "" {
			hosts = append(hosts, d.Host)
		}
	}

	reachable := scanHosts(ctx, hosts)
	sort.Strings(reachable)

	now := time.Now()
	if err := p.st.PutReachabilityCache(ctx, &domain.ReachabilityCache{
		ID:           domain.ReachabilityCacheID,
		ReachableIPs: reachable,
		UpdatedAt:    now,
	}); err != nil {
		return nil, err
	}
	return reachable, nil
}

// scanHosts probes every host concurrently via a worker pool and returns
// those that accepted a TCP connection on port 22 within the dial
// timeout.
func scanHosts(ctx context.Context, hosts []string) []string {
	jobs := make(chan string)
	var mu sync.Mutex
	var reachable []string
	var wg sync.WaitGroup

	workers := probeConcurrency
	if workers > len(hosts) {
		workers = len(hosts)
	}
	if workers == 0 {
		return nil
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				if probeOne(host) {
					mu.Lock()
					reachable = append(reachable, host)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, h := range hosts {
			select {
			case jobs <- h:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return reachable
}

func probeOne(host string) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, "22"), probeDialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
