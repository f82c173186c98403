package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/estatedesk/backoffice/internal/queue"
	"github.com/estatedesk/backoffice/internal/services/network"
)

// RegisterStatsRefreshJobHandlers wires the queued stats refresh job to the
// network statistics calculator.
func RegisterStatsRefreshJobHandlers(q *queue.RedisQueue, statsService *network.StatsService) {
	q.RegisterHandler(queue.JobTypeStatsRefresh, func(ctx context.Context, job queue.Job) error {
		var payload queue.StatsRefreshPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal stats refresh payload: %w", err)
		}
		return statsService.RefreshChain(payload.PartnerID)
	})
}
