package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"
	"moneta-backend/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const detailsSampleLimit = 20

var monthRefPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type RuleService struct {
	ruleRepo     *repository.RuleRepository
	txnRepo      *repository.TransactionRepository
	accountRepo  *repository.AccountRepository
	categoryRepo *repository.CategoryRepository
	db           *gorm.DB
}

func NewRuleService(
	ruleRepo *repository.RuleRepository,
	txnRepo *repository.TransactionRepository,
	accountRepo *repository.AccountRepository,
	categoryRepo *repository.CategoryRepository,
) *RuleService {
	return &RuleService{
		ruleRepo:     ruleRepo,
		txnRepo:      txnRepo,
		accountRepo:  accountRepo,
		categoryRepo: categoryRepo,
		db:           txnRepo.DB(),
	}
}

// RuleInput carries the user-editable rule fields.
type RuleInput struct {
	Name          string               `json:"name"`
	Priority      int                  `json:"priority"`
	MatchType     models.RuleMatchType `json:"matchType"`
	Pattern       string               `json:"pattern"`
	CategoryID    *uuid.UUID           `json:"categoryId"`
	SubcategoryID *uuid.UUID           `json:"subcategoryId"`
	AccountID     *uuid.UUID           `json:"accountId"`
	IsActive      *bool                `json:"isActive"`
}

func (s *RuleService) validateInput(userID uuid.UUID, input RuleInput) error {
	if input.Name == "" {
		return fmt.Errorf("name is required: %w", apperr.ErrValidation)
	}
	if input.Priority < 0 {
		return fmt.Errorf("priority must be >= 0: %w", apperr.ErrValidation)
	}
	if !input.MatchType.Valid() {
		return fmt.Errorf("invalid match type: %w", apperr.ErrValidation)
	}
	if input.Pattern == "" {
		return fmt.Errorf("pattern is required: %w", apperr.ErrValidation)
	}
	if input.CategoryID == nil && input.SubcategoryID == nil {
		return fmt.Errorf("rule must target a category or subcategory: %w", apperr.ErrValidation)
	}
	if err := ValidatePattern(input.MatchType, input.Pattern); err != nil {
		return err
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(userID, *input.CategoryID); err != nil {
			return err
		}
	}
	if input.SubcategoryID != nil {
		if _, err := s.categoryRepo.GetByID(userID, *input.SubcategoryID); err != nil {
			return err
		}
	}
	if input.AccountID != nil {
		if _, err := s.accountRepo.GetByID(userID, *input.AccountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RuleService) Create(userID uuid.UUID, input RuleInput) (*models.Rule, error) {
	if err := s.validateInput(userID, input); err != nil {
		return nil, err
	}
	rule := &models.Rule{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          input.Name,
		Priority:      input.Priority,
		MatchType:     input.MatchType,
		Pattern:       input.Pattern,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		AccountID:     input.AccountID,
		IsActive:      input.IsActive == nil || *input.IsActive,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.ruleRepo.Save(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) List(userID uuid.UUID) ([]models.Rule, error) {
	return s.ruleRepo.ListActive(userID)
}

func (s *RuleService) Get(userID, id uuid.UUID) (*models.Rule, error) {
	return s.ruleRepo.GetByID(userID, id)
}

func (s *RuleService) Update(userID, id uuid.UUID, input RuleInput) (*models.Rule, error) {
	rule, err := s.ruleRepo.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(userID, input); err != nil {
		return nil, err
	}
	rule.Name = input.Name
	rule.Priority = input.Priority
	rule.MatchType = input.MatchType
	rule.Pattern = input.Pattern
	rule.CategoryID = input.CategoryID
	rule.SubcategoryID = input.SubcategoryID
	rule.AccountID = input.AccountID
	rule.IsActive = input.IsActive == nil || *input.IsActive
	rule.UpdatedAt = time.Now()
	if err := s.ruleRepo.Save(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// SoftDelete deactivates a rule; it stops matching but stays addressable.
func (s *RuleService) SoftDelete(userID, id uuid.UUID) error {
	rule, err := s.ruleRepo.GetByID(userID, id)
	if err != nil {
		return err
	}
	rule.IsActive = false
	rule.UpdatedAt = time.Now()
	return s.ruleRepo.Save(rule)
}

// ApplyInput are the bulk-apply filters.
type ApplyInput struct {
	Month             string     `json:"month"`
	AccountID         *uuid.UUID `json:"accountId"`
	OnlyUncategorized *bool      `json:"onlyUncategorized"`
	DryRun            *bool      `json:"dryRun"`
	OverrideManual    *bool      `json:"overrideManual"`
}

type ApplyDetail struct {
	TxnID         uuid.UUID  `json:"txnId"`
	RuleID        uuid.UUID  `json:"ruleId"`
	CategoryID    *uuid.UUID `json:"categoryId"`
	SubcategoryID *uuid.UUID `json:"subcategoryId"`
}

type ApplyResult struct {
	Evaluated     int           `json:"evaluated"`
	Matched       int           `json:"matched"`
	Updated       int           `json:"updated"`
	SkippedManual int           `json:"skippedManual"`
	DetailsSample []ApplyDetail `json:"detailsSample"`
}

// Apply runs the user's active rules over the filtered transaction set.
// Dry-run computes everything but persists nothing.
func (s *RuleService) Apply(userID uuid.UUID, input ApplyInput) (*ApplyResult, error) {
	if input.Month != "" && !monthRefPattern.MatchString(input.Month) {
		return nil, fmt.Errorf("invalid month, expected YYYY-MM: %w", apperr.ErrValidation)
	}
	onlyUncategorized := input.OnlyUncategorized == nil || *input.OnlyUncategorized
	dryRun := input.DryRun != nil && *input.DryRun
	overrideManual := input.OverrideManual != nil && *input.OverrideManual

	result := &ApplyResult{DetailsSample: []ApplyDetail{}}

	ruleList, err := s.ruleRepo.ListActive(userID)
	if err != nil {
		return nil, err
	}
	if len(ruleList) == 0 {
		return result, nil
	}
	compiled, err := Compile(ruleList)
	if err != nil {
		return nil, err
	}

	filter := repository.RuleApplyFilter{
		Month:             input.Month,
		AccountID:         input.AccountID,
		OnlyUncategorized: onlyUncategorized,
		IncludeManual:     overrideManual,
	}
	txns, err := s.txnRepo.FindForRuleApply(userID, filter)
	if err != nil {
		return nil, err
	}
	if !overrideManual {
		skipped, err := s.txnRepo.CountManualExcluded(userID, filter)
		if err != nil {
			return nil, err
		}
		result.SkippedManual = int(skipped)
	}

	result.Evaluated = len(txns)
	var modified []*models.Transaction
	var logs []*models.CategorizationLog

	for _, txn := range txns {
		rule := FirstMatch(compiled, txn)
		if rule == nil {
			continue
		}
		result.Matched++
		previous := txn.CategoryID
		rule.ApplyTo(txn)
		modified = append(modified, txn)
		logs = append(logs, newLogEntry(txn, rule, previous))
		if len(result.DetailsSample) < detailsSampleLimit {
			result.DetailsSample = append(result.DetailsSample, ApplyDetail{
				TxnID:         txn.ID,
				RuleID:        rule.ID,
				CategoryID:    txn.CategoryID,
				SubcategoryID: txn.SubcategoryID,
			})
		}
	}

	if !dryRun && len(modified) > 0 {
		if err := s.persist(modified, logs); err != nil {
			return nil, err
		}
		result.Updated = len(modified)
	}

	log.WithFields(log.Fields{
		"user":      userID,
		"evaluated": result.Evaluated,
		"matched":   result.Matched,
		"updated":   result.Updated,
		"dryRun":    dryRun,
	}).Info("rule apply finished")
	return result, nil
}

// ApplyToTransactions runs the rule pass the commit engine triggers over
// exactly the transactions it just created. Returns how many were recolored.
func (s *RuleService) ApplyToTransactions(userID uuid.UUID, txns []*models.Transaction) (int, error) {
	ruleList, err := s.ruleRepo.ListActive(userID)
	if err != nil {
		return 0, err
	}
	if len(ruleList) == 0 {
		return 0, nil
	}
	compiled, err := Compile(ruleList)
	if err != nil {
		return 0, err
	}

	var modified []*models.Transaction
	var logs []*models.CategorizationLog
	for _, txn := range txns {
		if txn.CategorizationMode == models.CategorizedManual {
			continue
		}
		rule := FirstMatch(compiled, txn)
		if rule == nil {
			continue
		}
		previous := txn.CategoryID
		rule.ApplyTo(txn)
		modified = append(modified, txn)
		logs = append(logs, newLogEntry(txn, rule, previous))
	}
	if len(modified) == 0 {
		return 0, nil
	}
	if err := s.persist(modified, logs); err != nil {
		return 0, err
	}
	return len(modified), nil
}

func (s *RuleService) persist(txns []*models.Transaction, logs []*models.CategorizationLog) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(txns).Error; err != nil {
			return err
		}
		return tx.Create(logs).Error
	})
}

func newLogEntry(txn *models.Transaction, rule *CompiledRule, previous *uuid.UUID) *models.CategorizationLog {
	details, _ := json.Marshal(map[string]interface{}{
		"pattern":     rule.Pattern,
		"matchType":   rule.MatchType,
		"priority":    rule.Priority,
		"description": txn.Description,
	})
	return &models.CategorizationLog{
		ID:               uuid.New(),
		TransactionID:    txn.ID,
		RuleID:           rule.ID,
		PreviousCategory: previous,
		NewCategory:      txn.CategoryID,
		Details:          datatypes.JSON(details),
		CreatedAt:        time.Now(),
	}
}
