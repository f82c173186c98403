package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierOrdering(t *testing.T) {
	ordered := []Tier{TierAssociate, TierBronze, TierSilver, TierGold, TierDiamond}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
	}
}

func TestTierAtLeast(t *testing.T) {
	assert.True(t, TierGold.AtLeast(TierSilver))
	assert.True(t, TierGold.AtLeast(TierGold))
	assert.False(t, TierSilver.AtLeast(TierGold))
	assert.True(t, TierAssociate.AtLeast(TierAssociate))
}

func TestTierValid(t *testing.T) {
	assert.True(t, TierDiamond.Valid())
	assert.False(t, Tier("platinum").Valid())
	assert.Equal(t, -1, Tier("platinum").Rank())
}
