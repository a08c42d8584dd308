package graph_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/graph"
	"github.com/servak/topology-manager/internal/store/memstore"
)

func TestPlanPathScenarioD(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Now()

	mustLink := func(a, ifa, b, ifb string) {
		key, sa, sifa, sb, sifb := graph.EdgeKey(a, ifa, b, ifb)
		if err := st.UpsertGraphLink(ctx, &domain.GraphLink{
			Key: key, A: sa, B: sb, IfA: sifa, IfB: sifb, FirstSeen: now, LastSeen: now,
		}); err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}
	mustLink("10.0.0.1", "Gi0/1", "10.1.0.5", "Gi0/2")
	mustLink("10.1.0.5", "Gi0/3", "10.2.0.9", "Gi0/4")

	path, err := graph.PlanPath(ctx, st, []string{"10.0.0.1"}, "10.2.0.9")
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	want := []string{"10.0.0.1", "10.1.0.5", "10.2.0.9"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("PlanPath = %v, want %v", path, want)
	}
}

func TestPlanPathEmptyReachable(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	path, err := graph.PlanPath(ctx, st, nil, "10.0.0.9")
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	if path != nil {
		t.Errorf("expected nil path, got %v", path)
	}
}

func TestPlanPathAlreadyReachable(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	path, err := graph.PlanPath(ctx, st, []string{"10.0.0.1", "10.0.0.2"}, "10.0.0.1")
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"10.0.0.1"}) {
		t.Errorf("PlanPath = %v, want [10.0.0.1]", path)
	}
}

func TestPlanPathTieBreakSortedFirst(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Now()
	key, a, ifa, b, ifb := graph.EdgeKey("10.0.0.2", "Gi0", "10.9.9.9", "Gi1")
	st.UpsertGraphLink(ctx, &domain.GraphLink{Key: key, A: a, B: b, IfA: ifa, IfB: ifb, FirstSeen: now, LastSeen: now})
	key2, a2, ifa2, b2, ifb2 := graph.EdgeKey("10.0.0.1", "Gi0", "10.9.9.9", "Gi1")
	st.UpsertGraphLink(ctx, &domain.GraphLink{Key: key2, A: a2, B: b2, IfA: ifa2, IfB: ifb2, FirstSeen: now, LastSeen: now})

	path, err := graph.PlanPath(ctx, st, []string{"10.0.0.2", "10.0.0.1"}, "10.9.9.9")
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	// Both starts yield a length-2 path; 10.0.0.1 sorts first.
	if path[0] != "10.0.0.1" {
		t.Errorf("expected tie-break to prefer 10.0.0.1, got %v", path)
	}
}
