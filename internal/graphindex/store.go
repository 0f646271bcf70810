// Package graphindex implements the GraphIndex component: directed
// foreign-key/inferred edges between tables, keyed by connection, with
// bounded breadth-first traversals.
package graphindex

import (
	"context"
	"sync"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// connectionGraph is one connection's adjacency list. edges preserves
// insertion order; outAdj indexes into edges by source table so BFS
// visits a node's outgoing edges in the order they were stored.
type connectionGraph struct {
	edges  []contracts.GraphEdge
	outAdj map[string][]int
}

func newConnectionGraph(edges []contracts.GraphEdge) *connectionGraph {
	g := &connectionGraph{edges: edges, outAdj: make(map[string][]int, len(edges))}
	for i, e := range edges {
		g.outAdj[e.FromTable] = append(g.outAdj[e.FromTable], i)
	}
	return g
}

// InMemoryGraphStore is the default contracts.GraphStore adapter: an
// in-process adjacency list per connection, analogous in shape to the
// teacher's relationship-memory integration but backed by a plain map
// instead of an external service, per this component's design.
type InMemoryGraphStore struct {
	mu    sync.RWMutex
	graph map[string]*connectionGraph
}

// NewInMemoryGraphStore creates an empty store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{graph: make(map[string]*connectionGraph)}
}

// UpsertEdges implements contracts.GraphStore by replacing connectionID's
// entire edge set, matching this component's replace-not-append contract.
func (s *InMemoryGraphStore) UpsertEdges(ctx context.Context, connectionID string, edges []contracts.GraphEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]contracts.GraphEdge, len(edges))
	copy(cp, edges)
	s.graph[connectionID] = newConnectionGraph(cp)
	return nil
}

// ShortestPaths implements contracts.GraphStore: breadth-first, depth bound
// inclusive, every returned path achieves the shortest distance between
// source and target, cycles pruned by construction (a node is only
// discovered once).
func (s *InMemoryGraphStore) ShortestPaths(ctx context.Context, connectionID, source, target string, maxDepth int) ([]contracts.GraphPath, error) {
	s.mu.RLock()
	g, ok := s.graph[connectionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if source == target {
		return []contracts.GraphPath{{}}, nil
	}

	dist := map[string]int{source: 0}
	preds := map[string][]contracts.GraphEdge{}
	frontier := []string{source}

	for depth := 0; len(frontier) > 0 && depth < maxDepth; depth++ {
		var next []string
		for _, u := range frontier {
			for _, idx := range g.outAdj[u] {
				e := g.edges[idx]
				v := e.ToTable
				if d, seen := dist[v]; seen {
					if d == depth+1 {
						preds[v] = append(preds[v], e)
					}
					continue
				}
				dist[v] = depth + 1
				preds[v] = append(preds[v], e)
				next = append(next, v)
			}
		}
		frontier = next
	}

	if _, reached := dist[target]; !reached {
		return nil, nil
	}
	return buildPaths(target, source, preds), nil
}

// buildPaths reconstructs every shortest path from source to node using
// preds, the shortest-distance predecessor edges collected during BFS.
// Recursion always steps to a strictly shallower distance, so it
// terminates even though a node can have several predecessors.
func buildPaths(node, source string, preds map[string][]contracts.GraphEdge) []contracts.GraphPath {
	if node == source {
		return []contracts.GraphPath{{}}
	}
	var out []contracts.GraphPath
	for _, e := range preds[node] {
		for _, prefix := range buildPaths(e.FromTable, source, preds) {
			path := make(contracts.GraphPath, 0, len(prefix)+1)
			path = append(path, prefix...)
			path = append(path, e)
			out = append(out, path)
		}
	}
	return out
}

// Neighbors implements contracts.GraphStore: single-source breadth-first
// traversal following edge direction only ("one hop out" per the calling
// Orchestrator), ties at equal distance returned in insertion order.
func (s *InMemoryGraphStore) Neighbors(ctx context.Context, connectionID, table string, maxDepth int) ([]contracts.TableDistance, error) {
	s.mu.RLock()
	g, ok := s.graph[connectionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	dist := map[string]int{table: 0}
	var order []contracts.TableDistance
	frontier := []string{table}

	for depth := 0; len(frontier) > 0 && depth < maxDepth; depth++ {
		var next []string
		for _, u := range frontier {
			for _, idx := range g.outAdj[u] {
				v := g.edges[idx].ToTable
				if _, seen := dist[v]; seen {
					continue
				}
				dist[v] = depth + 1
				order = append(order, contracts.TableDistance{Table: v, Distance: depth + 1})
				next = append(next, v)
			}
		}
		frontier = next
	}
	return order, nil
}

// DeleteByKey implements contracts.GraphStore.
func (s *InMemoryGraphStore) DeleteByKey(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graph, connectionID)
	return nil
}

// AnalyzeDependencies implements contracts.GraphStore; counts reflect the
// whole connection graph, not just the requested table subset.
func (s *InMemoryGraphStore) AnalyzeDependencies(ctx context.Context, connectionID string, tables []string) (map[string][]string, map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deps := make(map[string][]string, len(tables))
	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		counts[t] = 0
	}

	g, ok := s.graph[connectionID]
	if !ok {
		for _, t := range tables {
			deps[t] = nil
		}
		return deps, counts, nil
	}

	for _, t := range tables {
		var out []string
		for _, idx := range g.outAdj[t] {
			out = append(out, g.edges[idx].ToTable)
		}
		deps[t] = out
	}
	for _, e := range g.edges {
		if _, tracked := counts[e.ToTable]; tracked {
			counts[e.ToTable]++
		}
	}
	return deps, counts, nil
}

var _ contracts.GraphStore = (*InMemoryGraphStore)(nil)
