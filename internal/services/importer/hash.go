package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"moneta-backend/internal/models"

	"github.com/google/uuid"
)

// Fingerprint is the stable dedup digest for a transaction-shaped record.
// Two rows, or a row and a committed transaction, are duplicates exactly
// when their fingerprints are equal. The date is calendar-only and the
// description is normalized so cosmetic differences don't defeat dedup.
func Fingerprint(
	userID uuid.UUID,
	paymentType models.PaymentType,
	accountOrCardID uuid.UUID,
	date time.Time,
	amountCents int64,
	direction models.TxnDirection,
	description string,
) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s",
		userID,
		paymentType,
		accountOrCardID,
		date.Format("2006-01-02"),
		amountCents,
		direction,
		NormalizeDescription(description),
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription trims, collapses internal whitespace runs to single
// spaces and upper-cases.
func NormalizeDescription(description string) string {
	return strings.ToUpper(strings.Join(strings.Fields(description), " "))
}
