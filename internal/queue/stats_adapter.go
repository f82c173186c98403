package queue

import (
	"context"

	"github.com/google/uuid"
)

// StatsRefreshPayload is the payload of a JobTypeStatsRefresh job.
type StatsRefreshPayload struct {
	PartnerID uuid.UUID `json:"partner_id"`
}

// StatsRefreshAdapter turns the queue into a stats refresher: tree mutations
// and commission calculations enqueue a refresh instead of walking the tree
// inline. The aggregates are a cache, so deferred recomputation is safe.
type StatsRefreshAdapter struct {
	queue *RedisQueue
}

// NewStatsRefreshAdapter creates a queue-backed stats refresher
func NewStatsRefreshAdapter(q *RedisQueue) *StatsRefreshAdapter {
	return &StatsRefreshAdapter{queue: q}
}

// RefreshChain enqueues an aggregate refresh for a partner and its upline.
func (a *StatsRefreshAdapter) RefreshChain(partnerID uuid.UUID) error {
	_, err := a.queue.Enqueue(context.Background(), JobTypeStatsRefresh, StatsRefreshPayload{PartnerID: partnerID})
	return err
}
