package network

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidSponsorError is returned when an enrollment references a sponsor
// that does not exist, is inactive, or would create a cycle in the tree.
type InvalidSponsorError struct {
	SponsorID uuid.UUID
	Reason    string
}

func (e *InvalidSponsorError) Error() string {
	return fmt.Sprintf("invalid sponsor %s: %s", e.SponsorID, e.Reason)
}

// PartnerNotFoundError is returned when a partner lookup finds no row.
type PartnerNotFoundError struct {
	PartnerID uuid.UUID
}

func (e *PartnerNotFoundError) Error() string {
	return fmt.Sprintf("partner %s not found", e.PartnerID)
}
