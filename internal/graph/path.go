package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/servak/topology-manager/internal/store"
)

// adjacency is an undirected adjacency mapping built from every current
// graph edge: node id -> list of neighbor ids.
type adjacency map[string][]string

func buildAdjacency(ctx context.Context, st store.Store) (adjacency, error) {
	links, err := st.ListGraphLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: list links: %w", err)
	}
	adj := make(adjacency)
	for _, l := range links {
		adj[l.A] = append(adj[l.A], l.B)
		adj[l.B] = append(adj[l.B], l.A)
	}
	return adj, nil
}

// bfsShortestPath returns the shortest path from start to target within
// adj, or nil if target is unreachable from start.
func bfsShortestPath(adj adjacency, start, target string) []string {
	if start == target {
		return []string{target}
	}
	visited := map[string]bool{start: true}
	parent := map[string]string{}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		neighbors := append([]string(nil), adj[cur]...)
		sort.Strings(neighbors)
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			parent[n] = cur
			if n == target {
				path := []string{target}
				for p := cur; ; p = parent[p] {
					path = append([]string{p}, path...)
					if p == start {
						break
					}
				}
				return path
			}
			queue = append(queue, n)
		}
	}
	return nil
}

// PlanPath finds the shortest path from any directly reachable device to
// targetIP, iterating reachable starting IPs in sorted order for
// deterministic tie-breaking: the first starting IP in sorted order wins
// paths of equal length. Returns nil if no reachable starting point
// yields a path (including when the reachable set itself is empty).
func PlanPath(ctx context.Context, st store.Store, reachable []string, targetIP string) ([]string, error) {
	if len(reachable) == 0 {
		return nil, nil
	}

	adj, err := buildAdjacency(ctx, st)
	if err != nil {
		return nil, err
	}

	starts := append([]string(nil), reachable...)
	sort.Strings(starts)

	var best []string
	for _, start := range starts {
		path := bfsShortestPath(adj, start, targetIP)
		if path == nil {
			continue
		}
		if best == nil || len(path) < len(best) {
			best = path
		}
	}
	return best, nil
}
