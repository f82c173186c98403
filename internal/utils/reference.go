package utils

import (
	"fmt"
	"math/rand"
	"time"
)

const referralCodeLength = 8
const referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode generates a candidate 8-character alphanumeric
// referral code. Uniqueness is enforced by the caller against the partners
// table; on collision a fresh candidate is drawn.
func GenerateReferralCode() string {
	result := make([]byte, referralCodeLength)
	for i := range result {
		result[i] = referralCodeCharset[rand.Intn(len(referralCodeCharset))]
	}
	return string(result)
}

// GenerateReference generates a unique reference for transactions
func GenerateReference(prefix string) string {
	result := make([]byte, referralCodeLength)
	for i := range result {
		result[i] = referralCodeCharset[rand.Intn(len(referralCodeCharset))]
	}

	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, string(result))
}
