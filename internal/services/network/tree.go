package network

import (
	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
)

// absoluteDepthCeiling bounds every traversal regardless of what the caller
// asks for. Corrupted data must never turn a walk into an infinite loop.
const absoluteDepthCeiling = 50

// adjacency maps a sponsor id to the ids of its direct downline.
type adjacency map[uuid.UUID][]uuid.UUID

// buildAdjacency indexes partners by sponsor. Deactivated partners stay in
// the tree; deactivation only stops them from earning.
func buildAdjacency(partners []models.Partner) adjacency {
	adj := make(adjacency, len(partners))
	for _, p := range partners {
		if p.SponsorID == nil {
			continue
		}
		adj[*p.SponsorID] = append(adj[*p.SponsorID], p.ID)
	}
	return adj
}

// collectDownline walks the sponsor->child adjacency breadth-first from root
// and returns every descendant id within maxDepth hops. The root itself is
// not included. A visited set makes the walk terminate even if the data has
// been corrupted into a cycle.
func collectDownline(adj adjacency, root uuid.UUID, maxDepth int) []uuid.UUID {
	if maxDepth <= 0 || maxDepth > absoluteDepthCeiling {
		maxDepth = absoluteDepthCeiling
	}

	visited := map[uuid.UUID]bool{root: true}
	var result []uuid.UUID

	frontier := []uuid.UUID{root}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, id := range frontier {
			for _, child := range adj[id] {
				if visited[child] {
					continue
				}
				visited[child] = true
				result = append(result, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return result
}

// subtreeStats holds the recomputed aggregates for one partner.
type subtreeStats struct {
	directReferrals int
	networkSize     int
	networkDepth    int
}

// computeStats recomputes a partner's aggregates from the adjacency alone.
// Size counts every transitive descendant; depth is the longest chain from
// the partner down to any leaf.
func computeStats(adj adjacency, root uuid.UUID) subtreeStats {
	stats := subtreeStats{directReferrals: len(adj[root])}

	visited := map[uuid.UUID]bool{root: true}
	frontier := []uuid.UUID{root}
	for depth := 0; depth < absoluteDepthCeiling && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, id := range frontier {
			for _, child := range adj[id] {
				if visited[child] {
					continue
				}
				visited[child] = true
				next = append(next, child)
			}
		}
		if len(next) > 0 {
			stats.networkSize += len(next)
			stats.networkDepth = depth + 1
		}
		frontier = next
	}
	return stats
}

// ancestorChain walks upward from start following sponsor links and returns
// the chain of ancestor ids in order (direct sponsor first). The walk stops
// at a root, at the depth ceiling, or when it would revisit a node.
func ancestorChain(byID map[uuid.UUID]models.Partner, start uuid.UUID) []uuid.UUID {
	var chain []uuid.UUID
	seen := map[uuid.UUID]bool{start: true}

	current, ok := byID[start]
	for ok && current.SponsorID != nil && len(chain) < absoluteDepthCeiling {
		sponsorID := *current.SponsorID
		if seen[sponsorID] {
			break
		}
		seen[sponsorID] = true
		chain = append(chain, sponsorID)
		current, ok = byID[sponsorID]
	}
	return chain
}

// wouldCreateCycle reports whether assigning sponsorID as the sponsor of
// childID would make childID its own ancestor.
func wouldCreateCycle(byID map[uuid.UUID]models.Partner, childID, sponsorID uuid.UUID) bool {
	if childID == sponsorID {
		return true
	}
	for _, ancestor := range ancestorChain(byID, sponsorID) {
		if ancestor == childID {
			return true
		}
	}
	return false
}

// indexByID builds a lookup map over a partner slice.
func indexByID(partners []models.Partner) map[uuid.UUID]models.Partner {
	byID := make(map[uuid.UUID]models.Partner, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}
	return byID
}
