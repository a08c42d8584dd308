package reachability_test

import (
	"context"
	"testing"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/reachability"
	"github.com/servak/topology-manager/internal/store/memstore"
)

func TestProbeUsesFreshCache(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.PutReachabilityCache(ctx, &domain.ReachabilityCache{
		ID:           domain.ReachabilityCacheID,
		ReachableIPs: []string{"10.0.0.9"},
		UpdatedAt:    time.Now(),
	})

	p := reachability.New(st, 300*time.Second)
	got, err := p.Probe(ctx)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 1 || got[0] != "10.0.0.9" {
		t.Errorf("expected cached result, got %v", got)
	}
}

func TestProbeRescansStaleCache(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	st.SeedDevice(&domain.Device{Host: "192.0.2.1", Status: domain.StatusReady})
	staleTime := time.Now().Add(-400 * time.Second)
	st.PutReachabilityCache(ctx, &domain.ReachabilityCache{
		ID:           domain.ReachabilityCacheID,
		ReachableIPs: []string{"127.0.0.1"},
		UpdatedAt:    staleTime,
	})

	p := reachability.New(st, 300*time.Second)
	if _, err := p.Probe(ctx); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	cache, err := st.GetReachabilityCache(ctx)
	if err != nil {
		t.Fatalf("GetReachabilityCache: %v", err)
	}
	if cache.UpdatedAt.Equal(staleTime) {
		t.Errorf("expected stale cache to be refreshed, UpdatedAt unchanged")
	}
}
