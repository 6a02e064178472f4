package importer

import (
	"testing"
	"time"

	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "SUPER MERCADO", NormalizeDescription("  Super   Mercado "))
	assert.Equal(t, "SUPER MERCADO", NormalizeDescription("super mercado"))
	assert.Equal(t, "", NormalizeDescription("   "))
}

func TestFingerprintIgnoresCaseAndWhitespace(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	date := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	a := Fingerprint(userID, models.PaymentPIX, accountID, date, 5000, models.DirectionOut, "Super  Mercado")
	b := Fingerprint(userID, models.PaymentPIX, accountID, date, 5000, models.DirectionOut, "super mercado")
	assert.Equal(t, a, b)
}

func TestFingerprintIsDateOnly(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	morning := time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 4, 10, 22, 30, 0, 0, time.UTC)

	a := Fingerprint(userID, models.PaymentPIX, accountID, morning, 5000, models.DirectionOut, "Mercado")
	b := Fingerprint(userID, models.PaymentPIX, accountID, evening, 5000, models.DirectionOut, "Mercado")
	assert.Equal(t, a, b)
}

func TestFingerprintSensitivity(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	date := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	base := Fingerprint(userID, models.PaymentPIX, accountID, date, 5000, models.DirectionOut, "Mercado")

	assert.NotEqual(t, base,
		Fingerprint(userID, models.PaymentPIX, accountID, date, 5001, models.DirectionOut, "Mercado"))
	assert.NotEqual(t, base,
		Fingerprint(userID, models.PaymentPIX, accountID, date, 5000, models.DirectionIn, "Mercado"))
	assert.NotEqual(t, base,
		Fingerprint(userID, models.PaymentPIX, accountID, date.AddDate(0, 0, 1), 5000, models.DirectionOut, "Mercado"))
	assert.NotEqual(t, base,
		Fingerprint(userID, models.PaymentPIX, uuid.New(), date, 5000, models.DirectionOut, "Mercado"))
	assert.NotEqual(t, base,
		Fingerprint(userID, models.PaymentCard, accountID, date, 5000, models.DirectionOut, "Mercado"))
	assert.NotEqual(t, base,
		Fingerprint(uuid.New(), models.PaymentPIX, accountID, date, 5000, models.DirectionOut, "Mercado"))
}
