package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/graph"
	"github.com/servak/topology-manager/internal/store/memstore"
)

func TestConsolidateScenarioA(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Now()

	links := []domain.ParsedLink{{
		LocalIf:       "Gi0/1",
		RemoteSysname: "core-sw",
		RemotePort:    "Gi1/0/24",
		RemoteMgmtIP:  "10.0.0.2",
		DeviceType:    domain.TypeLayer3Switch,
		Protocol:      domain.ProtocolCDP,
	}}

	res, err := graph.Consolidate(ctx, st, "10.0.0.1", links, now)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(res.Edges) != 1 || res.Edges[0] != "10.0.0.1|10.0.0.2" {
		t.Fatalf("unexpected edges: %+v", res.Edges)
	}

	glinks, err := st.ListGraphLinks(ctx)
	if err != nil || len(glinks) != 1 {
		t.Fatalf("ListGraphLinks: %v %+v", err, glinks)
	}
	l := glinks[0]
	if l.A != "10.0.0.1" || l.B != "10.0.0.2" || l.IfA != "Gi0/1" || l.IfB != "Gi1/0/24" {
		t.Errorf("unexpected link fields: %+v", l)
	}
}

func TestConsolidateScenarioC_AlternateIP(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Now()

	st.SeedDevice(&domain.Device{
		DisplayName: "dist-1",
		Host:        "10.1.0.5",
	})

	links := []domain.ParsedLink{{
		LocalIf:       "Gi0/3",
		RemoteSysname: "dist-1",
		RemotePort:    "Gi2/0/1",
		RemoteMgmtIP:  "10.1.0.6",
		Protocol:      domain.ProtocolCDP,
	}}

	res, err := graph.Consolidate(ctx, st, "10.0.0.1", links, now)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	// The canonical remote id must resolve via display_name to the
	// primary host, 10.1.0.5, not the unregistered IP 10.1.0.6.
	found := false
	for _, n := range res.Nodes {
		if n == "10.1.0.6" {
			t.Fatalf("unexpected node for unregistered alternate IP: %+v", res.Nodes)
		}
		if n == "10.1.0.5" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected canonical node 10.1.0.5 in %+v", res.Nodes)
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	now := time.Now()
	links := []domain.ParsedLink{{
		LocalIf: "Gi0/1", RemoteSysname: "n2", RemotePort: "Gi0/2",
		RemoteMgmtIP: "10.0.0.2", Protocol: domain.ProtocolCDP,
	}}

	if _, err := graph.Consolidate(ctx, st, "10.0.0.1", links, now); err != nil {
		t.Fatalf("first consolidate: %v", err)
	}
	firstLinks, _ := st.ListGraphLinks(ctx)

	later := now.Add(time.Minute)
	if _, err := graph.Consolidate(ctx, st, "10.0.0.1", links, later); err != nil {
		t.Fatalf("second consolidate: %v", err)
	}
	secondLinks, _ := st.ListGraphLinks(ctx)

	if len(firstLinks) != 1 || len(secondLinks) != 1 {
		t.Fatalf("expected a single link to persist across re-discovery: %d -> %d", len(firstLinks), len(secondLinks))
	}
	if !secondLinks[0].FirstSeen.Equal(firstLinks[0].FirstSeen) {
		t.Errorf("first_seen must not change on re-discovery")
	}
	if !secondLinks[0].LastSeen.Equal(later) {
		t.Errorf("last_seen must advance to the latest discovery time")
	}
}

func TestEdgeKeySorted(t *testing.T) {
	key, a, ifA, b, ifB := graph.EdgeKey("10.0.0.2", "Gi1", "10.0.0.1", "Gi2")
	if key != "10.0.0.1|10.0.0.2" {
		t.Errorf("key = %q", key)
	}
	if a != "10.0.0.1" || ifA != "Gi2" || b != "10.0.0.2" || ifB != "Gi1" {
		t.Errorf("unexpected alignment: a=%s ifA=%s b=%s ifB=%s", a, ifA, b, ifB)
	}
}
