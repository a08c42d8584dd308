// Package graph implements the graph consolidator and the BFS
// path planner, following mpecarina-tmux-ssh-manager's
// net_topology.go three-index node resolution and
// original_source/worker/callback.py's build_graph/upsert_graph.
package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/store"
)

// CanonicalID resolves the canonical remote node id for one parsed link,
// per the three-lookup rule: alternate_ips membership, then exact host
// match, then display_name match with a non-empty host, then the IP
// verbatim; falling back to `name:<sysname>` when there is no IP at all.
// Returns "", false when the link carries neither an IP nor a sysname.
func CanonicalID(ctx context.Context, st store.Store, link domain.ParsedLink) (string, bool, error) {
	if link.RemoteMgmtIP != "" {
		if d, err := st.FindDeviceByAlternateIP(ctx, link.RemoteMgmtIP); err == nil {
			return d.Host, true, nil
		} else if err != store.ErrNotFound {
			return "", false, err
		}

		if d, err := st.GetDeviceByHost(ctx, link.RemoteMgmtIP); err == nil {
			return d.Host, true, nil
		} else if err != store.ErrNotFound {
			return "", false, err
		}

		if link.RemoteSysname != "" {
			if d, err := st.GetDeviceByDisplayName(ctx, link.RemoteSysname); err == nil && d.Host != "" {
				return d.Host, true, nil
			} else if err != nil && err != store.ErrNotFound {
				return "", false, err
			}
		}

		return link.RemoteMgmtIP, true, nil
	}

	if link.RemoteSysname != "" {
		return "name:" + link.RemoteSysname, true, nil
	}

	return "", false, nil
}

// EdgeKey builds the sorted-pair edge key and returns the endpoints/
// interface names aligned to that sort order.
func EdgeKey(a, ifA, b, ifB string) (key, sortedA, sortedIfA, sortedB, sortedIfB string) {
	if a <= b {
		return a + "|" + b, a, ifA, b, ifB
	}
	return b + "|" + a, b, ifB, a, ifA
}

// ConsolidateResult carries the sorted canonical node ids and edge keys
// that were upserted into the graph store; the orchestrator records this
// same projection in the topology snapshot.
type ConsolidateResult struct {
	Nodes []string
	Edges []string
}

// Consolidate resolves canonical ids for every link observed from
// localID (the seed device's canonical id, normally its host), then
// upserts the corresponding graph nodes and edges with last_seen=now;
// first_seen is set only on insert (handled by the store's upsert).
// Skipped links (no IP and no sysname) are simply omitted.
func Consolidate(ctx context.Context, st store.Store, localID string, links []domain.ParsedLink, now time.Time) (*ConsolidateResult, error) {
	res := &ConsolidateResult{}
	nodeSet := map[string]bool{localID: true}
	var edgeKeys []string

	if err := st.UpsertGraphNode(ctx, localID, now); err != nil {
		return nil, fmt.Errorf("graph: upsert local node: %w", err)
	}

	for _, link := range links {
		remoteID, ok, err := CanonicalID(ctx, st, link)
		if err != nil {
			return nil, fmt.Errorf("graph: canonicalize: %w", err)
		}
		if !ok {
			continue
		}

		if err := st.UpsertGraphNode(ctx, remoteID, now); err != nil {
			return nil, fmt.Errorf("graph: upsert remote node: %w", err)
		}
		nodeSet[remoteID] = true

		key, a, ifA, b, ifB := EdgeKey(localID, link.LocalIf, remoteID, link.RemotePort)
		if err := st.UpsertGraphLink(ctx, &domain.GraphLink{
			Key: key, A: a, B: b, IfA: ifA, IfB: ifB,
			FirstSeen: now, LastSeen: now,
		}); err != nil {
			return nil, fmt.Errorf("graph: upsert link: %w", err)
		}
		edgeKeys = append(edgeKeys, key)
	}

	for n := range nodeSet {
		res.Nodes = append(res.Nodes, n)
	}
	sort.Strings(res.Nodes)
	sort.Strings(edgeKeys)
	res.Edges = edgeKeys
	return res, nil
}
