package rules

import (
	"fmt"
	"regexp"
	"strings"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"
)

// CompiledRule pairs a rule with its pre-compiled regex so match time never
// pays for (or fails at) pattern compilation.
type CompiledRule struct {
	models.Rule
	regex *regexp.Regexp
}

// ValidatePattern rejects syntactically invalid regex patterns. It runs at
// rule create/update time; match time assumes patterns are sound.
func ValidatePattern(matchType models.RuleMatchType, pattern string) error {
	if matchType != models.MatchRegex {
		return nil
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("invalid regex pattern: %w", apperr.ErrValidation)
	}
	return nil
}

// Compile prepares a rule list for evaluation. Input order is preserved; the
// caller supplies rules already sorted by ascending priority.
func Compile(ruleList []models.Rule) ([]CompiledRule, error) {
	compiled := make([]CompiledRule, 0, len(ruleList))
	for _, rule := range ruleList {
		c := CompiledRule{Rule: rule}
		if rule.MatchType == models.MatchRegex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s has invalid pattern: %w", rule.ID, err)
			}
			c.regex = re
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// Matches reports whether the rule applies to the transaction: the account
// scope (if any) must equal the transaction's account, and the pattern must
// match the description. Card transactions never match account-scoped rules.
func (r *CompiledRule) Matches(txn *models.Transaction) bool {
	if r.AccountID != nil {
		if txn.AccountID == nil || *txn.AccountID != *r.AccountID {
			return false
		}
	}

	switch r.MatchType {
	case models.MatchContains:
		return strings.Contains(strings.ToLower(txn.Description), strings.ToLower(r.Pattern))
	case models.MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(txn.Description), strings.ToLower(r.Pattern))
	case models.MatchRegex:
		// Unanchored search over the raw, non-normalized description.
		return r.regex.FindStringIndex(txn.Description) != nil
	}
	return false
}

// FirstMatch returns the first rule in evaluation order that matches, or nil.
func FirstMatch(compiled []CompiledRule, txn *models.Transaction) *CompiledRule {
	for i := range compiled {
		if compiled[i].Matches(txn) {
			return &compiled[i]
		}
	}
	return nil
}

// ApplyTo assigns the rule's targets to the transaction, overwriting only
// the fields the rule actually sets, and records provenance.
func (r *CompiledRule) ApplyTo(txn *models.Transaction) {
	if r.CategoryID != nil {
		txn.CategoryID = r.CategoryID
	}
	if r.SubcategoryID != nil {
		txn.SubcategoryID = r.SubcategoryID
	}
	ruleID := r.ID
	txn.RuleID = &ruleID
	if txn.CategorizationMode != models.CategorizedManual {
		txn.CategorizationMode = models.CategorizedRule
	}
}
