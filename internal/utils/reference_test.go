package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode()
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.Contains(t, referralCodeCharset, string(c))
	}
}

func TestGenerateReferralCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateReferralCode()] = true
	}
	// 100 draws from a 36^8 space colliding down to a handful would mean a
	// broken generator.
	assert.Greater(t, len(seen), 90)
}

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("PO")
	parts := strings.Split(ref, "_")
	assert.Len(t, parts, 3)
	assert.Equal(t, "PO", parts[0])
	assert.Len(t, parts[2], 8)
}
