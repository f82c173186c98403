package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayoutStateMachine(t *testing.T) {
	all := []PayoutStatus{PayoutPending, PayoutApproved, PayoutPaid, PayoutCancelled}

	allowed := map[PayoutStatus][]PayoutStatus{
		PayoutPending:  {PayoutApproved, PayoutCancelled},
		PayoutApproved: {PayoutPaid, PayoutCancelled},
		// Paid and Cancelled are terminal.
		PayoutPaid:      {},
		PayoutCancelled: {},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []PayoutStatus{PayoutPaid, PayoutCancelled} {
		for _, to := range []PayoutStatus{PayoutPending, PayoutApproved, PayoutPaid, PayoutCancelled} {
			assert.False(t, terminal.CanTransition(to), "%s must be terminal", terminal)
		}
	}
}
