package rules

import (
	"testing"

	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleWith(priority int, matchType models.RuleMatchType, pattern string) models.Rule {
	return models.Rule{
		ID:        uuid.New(),
		Priority:  priority,
		MatchType: matchType,
		Pattern:   pattern,
		IsActive:  true,
	}
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern(models.MatchContains, "[unclosed"))
	assert.NoError(t, ValidatePattern(models.MatchRegex, `uber|99\s?pop`))
	assert.Error(t, ValidatePattern(models.MatchRegex, "[unclosed"))
}

func TestCompileRejectsBrokenRegex(t *testing.T) {
	_, err := Compile([]models.Rule{ruleWith(0, models.MatchRegex, "(")})
	assert.Error(t, err)
}

func TestMatchTypesAreCaseInsensitive(t *testing.T) {
	txn := &models.Transaction{Description: "Supermercado Pao de Acucar"}

	cases := []struct {
		matchType models.RuleMatchType
		pattern   string
		want      bool
	}{
		{models.MatchContains, "MERCADO", true},
		{models.MatchContains, "padaria", false},
		{models.MatchStartsWith, "super", true},
		{models.MatchStartsWith, "mercado", false},
		{models.MatchRegex, `pao\s+de`, true},
		{models.MatchRegex, `^acucar`, false},
	}
	for _, tc := range cases {
		compiled, err := Compile([]models.Rule{ruleWith(0, tc.matchType, tc.pattern)})
		require.NoError(t, err)
		assert.Equalf(t, tc.want, compiled[0].Matches(txn), "%s %q", tc.matchType, tc.pattern)
	}
}

func TestRegexMatchesAnywhereInDescription(t *testing.T) {
	compiled, err := Compile([]models.Rule{ruleWith(0, models.MatchRegex, `uber`)})
	require.NoError(t, err)

	assert.True(t, compiled[0].Matches(&models.Transaction{Description: "Pagamento UBER Trip"}))
	assert.False(t, compiled[0].Matches(&models.Transaction{Description: "Taxi corrida"}))
}

func TestFirstMatchHonorsEvaluationOrder(t *testing.T) {
	first := ruleWith(0, models.MatchContains, "super")
	second := ruleWith(1, models.MatchContains, "merc")
	compiled, err := Compile([]models.Rule{first, second})
	require.NoError(t, err)

	match := FirstMatch(compiled, &models.Transaction{Description: "Supermercado"})
	require.NotNil(t, match)
	assert.Equal(t, first.ID, match.ID)
}

func TestAccountScopedRules(t *testing.T) {
	accountID := uuid.New()
	otherID := uuid.New()
	scoped := ruleWith(0, models.MatchContains, "mercado")
	scoped.AccountID = &accountID
	compiled, err := Compile([]models.Rule{scoped})
	require.NoError(t, err)

	assert.True(t, compiled[0].Matches(&models.Transaction{Description: "Mercado", AccountID: &accountID}))
	assert.False(t, compiled[0].Matches(&models.Transaction{Description: "Mercado", AccountID: &otherID}))

	// Card transactions carry no account, so scoped rules never apply.
	cardID := uuid.New()
	assert.False(t, compiled[0].Matches(&models.Transaction{Description: "Mercado", CardID: &cardID}))
}

func TestApplyToOverwritesOnlySetFields(t *testing.T) {
	categoryID := uuid.New()
	existingSub := uuid.New()
	rule := ruleWith(0, models.MatchContains, "mercado")
	rule.CategoryID = &categoryID
	compiled, err := Compile([]models.Rule{rule})
	require.NoError(t, err)

	txn := &models.Transaction{
		Description:        "Mercado",
		SubcategoryID:      &existingSub,
		CategorizationMode: models.CategorizedImport,
	}
	compiled[0].ApplyTo(txn)

	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, categoryID, *txn.CategoryID)
	assert.Equal(t, existingSub, *txn.SubcategoryID, "unset rule field must not clobber")
	require.NotNil(t, txn.RuleID)
	assert.Equal(t, rule.ID, *txn.RuleID)
	assert.Equal(t, models.CategorizedRule, txn.CategorizationMode)
}

func TestApplyToKeepsManualMode(t *testing.T) {
	categoryID := uuid.New()
	rule := ruleWith(0, models.MatchContains, "mercado")
	rule.CategoryID = &categoryID
	compiled, err := Compile([]models.Rule{rule})
	require.NoError(t, err)

	txn := &models.Transaction{Description: "Mercado", CategorizationMode: models.CategorizedManual}
	compiled[0].ApplyTo(txn)
	assert.Equal(t, models.CategorizedManual, txn.CategorizationMode)
}
