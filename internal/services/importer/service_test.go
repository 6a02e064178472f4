package importer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"
	"moneta-backend/internal/repository"
	"moneta-backend/internal/services/alerts"
	"moneta-backend/internal/services/rules"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DSN keeps every pooled connection on the same
	// in-memory database; a plain :memory: DSN would not.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.Card{},
		&models.Category{},
		&models.ImportBatch{},
		&models.ImportRow{},
		&models.Transaction{},
		&models.Rule{},
		&models.CategorizationLog{},
		&models.Alert{},
	))
	return db
}

func newTestService(db *gorm.DB) *ImportService {
	txnRepo := repository.NewTransactionRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ruleService := rules.NewRuleService(
		repository.NewRuleRepository(db), txnRepo, accountRepo, categoryRepo,
	)
	return NewImportService(
		repository.NewImportRepository(db),
		txnRepo,
		accountRepo,
		repository.NewCardRepository(db),
		categoryRepo,
		ruleService,
		alerts.NewNotifier(db),
	)
}

func seedAccount(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *models.Account {
	t.Helper()
	account := &models.Account{ID: uuid.New(), UserID: userID, Name: name, IsActive: true}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedCard(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *models.Card {
	t.Helper()
	card := &models.Card{ID: uuid.New(), UserID: userID, Name: name, IsActive: true}
	require.NoError(t, db.Create(card).Error)
	return card
}

func seedCategory(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *models.Category {
	t.Helper()
	category := &models.Category{ID: uuid.New(), UserID: userID, Name: name, IsActive: true}
	require.NoError(t, db.Create(category).Error)
	return category
}

func csvFile(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestUploadStagesAndClassifiesRows(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")
	groceries := seedCategory(t, db, userID, "Groceries")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount,category",
		"2024-04-10,Supermercado,-120.50,Groceries",
		"2024-04-10,Supermercado,-120.50,",
		"2024-04-11,Salary,5000.00,",
		"bad-date,Broken,-1.00,",
	))
	require.NoError(t, err)

	assert.Equal(t, models.BatchParsed, summary.Status)
	assert.Equal(t, 4, summary.Totals.TotalRows)
	assert.Equal(t, 2, summary.Totals.ReadyRows)
	assert.Equal(t, 1, summary.Totals.DuplicateRows)
	assert.Equal(t, 1, summary.Totals.ErrorRows)

	var stored []models.ImportRow
	require.NoError(t, db.Where("batch_id = ?", summary.BatchID).Order("row_index").Find(&stored).Error)
	require.Len(t, stored, 4)
	assert.Equal(t, models.RowReady, stored[0].Status)
	require.NotNil(t, stored[0].ResolvedCategoryID)
	assert.Equal(t, groceries.ID, *stored[0].ResolvedCategoryID)
	assert.Equal(t, models.RowDuplicate, stored[1].Status)
	assert.Nil(t, stored[1].Hash)
	assert.Equal(t, models.RowReady, stored[2].Status)
	assert.Equal(t, int64(500000), stored[2].AmountCents)
	assert.Equal(t, models.DirectionIn, stored[2].Direction)
	assert.Equal(t, models.RowError, stored[3].Status)
}

func TestUploadMissingRequiredColumnCreatesNoBatch(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	_, err := service.Upload(userID, account.ID, "broken.csv", csvFile(
		"date,description",
		"2024-04-10,Supermercado",
	))
	require.ErrorIs(t, err, apperr.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.ImportBatch{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUploadUnknownAccountRejected(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)

	_, err := service.Upload(uuid.New(), uuid.New(), "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-1.00",
	))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUploadResolvesAccountAndCardReferences(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")
	savings := seedAccount(t, db, userID, "Savings")
	card := seedCard(t, db, userID, "Visa Gold")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount,payment_method,account,card",
		"2024-04-10,Transfer,-50.00,PIX,savings,",
		"2024-04-11,Restaurant,-80.00,CARD,,visa gold",
		"2024-04-12,Unknown bank,-10.00,PIX,Nonexistent,",
		"2024-04-13,Unknown plastic,-10.00,CARD,,Nonexistent",
	))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Totals.ReadyRows)
	assert.Equal(t, 2, summary.Totals.ErrorRows)

	var stored []models.ImportRow
	require.NoError(t, db.Where("batch_id = ?", summary.BatchID).Order("row_index").Find(&stored).Error)
	require.NotNil(t, stored[0].ResolvedAccountID)
	assert.Equal(t, savings.ID, *stored[0].ResolvedAccountID)
	require.NotNil(t, stored[1].ResolvedCardID)
	assert.Equal(t, card.ID, *stored[1].ResolvedCardID)
	assert.Equal(t, models.RowError, stored[2].Status)
	assert.Contains(t, stored[2].ErrorMessage, "account not found")
	assert.Equal(t, models.RowError, stored[3].Status)
	assert.Contains(t, stored[3].ErrorMessage, "card not found")
}

func TestUploadDetectsCrossBatchDuplicates(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	lines := []string{
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
	}
	first, err := service.Upload(userID, account.ID, "first.csv", csvFile(lines...))
	require.NoError(t, err)
	_, err = service.Commit(userID, first.BatchID, CommitOptions{})
	require.NoError(t, err)

	second, err := service.Upload(userID, account.ID, "second.csv", csvFile(lines...))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Totals.DuplicateRows)
	assert.Equal(t, 0, second.Totals.ReadyRows)
}

func TestCommitIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
		"2024-04-11,Salary,5000.00",
	))
	require.NoError(t, err)

	result, err := service.Commit(userID, summary.BatchID, CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedTxns)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, models.BatchCommitted, result.BatchStatus)

	again, err := service.Commit(userID, summary.BatchID, CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.CreatedTxns)
	assert.Equal(t, models.BatchCommitted, again.BatchStatus)

	var txnCount int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&txnCount).Error)
	assert.Equal(t, int64(2), txnCount)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ? AND description = ?", userID, "Supermercado").First(&txn).Error)
	assert.Equal(t, models.TxnPosted, txn.Status)
	assert.Equal(t, models.CategorizedImport, txn.CategorizationMode)
	assert.Equal(t, "2024-04", txn.MonthRef)
	require.NotNil(t, txn.AccountID)
	assert.Equal(t, account.ID, *txn.AccountID)
	require.NotNil(t, txn.DedupHash)
}

func TestCommitSkipsHistoryDuplicates(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
	))
	require.NoError(t, err)

	// History that arrived between staging and commit carries the same
	// fingerprint; the commit-time reseed must catch it.
	var row models.ImportRow
	require.NoError(t, db.Where("batch_id = ?", summary.BatchID).First(&row).Error)
	require.NotNil(t, row.Hash)
	require.NoError(t, db.Create(&models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		PaymentType: models.PaymentPIX,
		AmountCents: row.AmountCents,
		Direction:   row.Direction,
		Description: row.Description,
		OccurredAt:  time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		MonthRef:    "2024-04",
		Status:      models.TxnPosted,
		TxnType:     models.TxnNormal,
		AccountID:   &account.ID,
		DedupHash:   row.Hash,
		IsActive:    true,
	}).Error)

	result, err := service.Commit(userID, summary.BatchID, CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedTxns)
	assert.Equal(t, 1, result.Duplicates)

	require.NoError(t, db.Where("id = ?", row.ID).First(&row).Error)
	assert.Equal(t, models.RowDuplicate, row.Status)
	assert.Nil(t, row.Hash)
}

func TestCommitLateDuplicateHitsUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
	))
	require.NoError(t, err)

	var row models.ImportRow
	require.NoError(t, db.Where("batch_id = ?", summary.BatchID).First(&row).Error)
	require.NotNil(t, row.Hash)
	require.NoError(t, db.Create(&models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		PaymentType: models.PaymentPIX,
		AmountCents: row.AmountCents,
		Direction:   row.Direction,
		Description: row.Description,
		OccurredAt:  time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		MonthRef:    "2024-04",
		Status:      models.TxnPosted,
		TxnType:     models.TxnNormal,
		AccountID:   &account.ID,
		DedupHash:   row.Hash,
		IsActive:    true,
	}).Error)

	// With the in-memory skip disabled the insert itself must collide on
	// (user_id, dedup_hash) and demote the row instead of failing the commit.
	skip := false
	result, err := service.Commit(userID, summary.BatchID, CommitOptions{SkipDuplicates: &skip})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedTxns)
	assert.Equal(t, 1, result.Duplicates)

	require.NoError(t, db.Where("id = ?", row.ID).First(&row).Error)
	assert.Equal(t, models.RowDuplicate, row.Status)
}

func TestCommitAppliesRulesToNewTransactions(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")
	transport := seedCategory(t, db, userID, "Transport")
	require.NoError(t, db.Create(&models.Rule{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "ride hailing",
		Priority:   0,
		MatchType:  models.MatchContains,
		Pattern:    "uber",
		CategoryID: &transport.ID,
		IsActive:   true,
	}).Error)

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,UBER Trip,-23.90",
	))
	require.NoError(t, err)
	_, err = service.Commit(userID, summary.BatchID, CommitOptions{})
	require.NoError(t, err)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).First(&txn).Error)
	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, transport.ID, *txn.CategoryID)
	assert.Equal(t, models.CategorizedRule, txn.CategorizationMode)
	require.NotNil(t, txn.RuleID)

	var logCount int64
	require.NoError(t, db.Model(&models.CategorizationLog{}).Where("transaction_id = ?", txn.ID).Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)
}

func TestCommitWithoutRuleApplication(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")
	transport := seedCategory(t, db, userID, "Transport")
	require.NoError(t, db.Create(&models.Rule{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "ride hailing",
		MatchType:  models.MatchContains,
		Pattern:    "uber",
		CategoryID: &transport.ID,
		IsActive:   true,
	}).Error)

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,UBER Trip,-23.90",
	))
	require.NoError(t, err)
	apply := false
	_, err = service.Commit(userID, summary.BatchID, CommitOptions{ApplyRulesAfterCommit: &apply})
	require.NoError(t, err)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).First(&txn).Error)
	assert.Nil(t, txn.CategoryID)
	assert.Equal(t, models.CategorizedImport, txn.CategorizationMode)
}

func TestCommitCardRowSettlesAgainstCard(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")
	card := seedCard(t, db, userID, "Visa Gold")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount,payment_method,account,card",
		"2024-04-11,Restaurant,-80.00,CARD,,Visa Gold",
	))
	require.NoError(t, err)
	result, err := service.Commit(userID, summary.BatchID, CommitOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.CreatedTxns)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).First(&txn).Error)
	assert.Nil(t, txn.AccountID)
	require.NotNil(t, txn.CardID)
	assert.Equal(t, card.ID, *txn.CardID)
	assert.Equal(t, models.PaymentCard, txn.PaymentType)
}

func TestDeleteBatch(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	staged, err := service.Upload(userID, account.ID, "staged.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
	))
	require.NoError(t, err)
	require.NoError(t, service.DeleteBatch(userID, staged.BatchID))

	var rowCount int64
	require.NoError(t, db.Model(&models.ImportRow{}).Where("batch_id = ?", staged.BatchID).Count(&rowCount).Error)
	assert.Zero(t, rowCount)

	committed, err := service.Upload(userID, account.ID, "committed.csv", csvFile(
		"date,description,amount",
		"2024-04-11,Salary,5000.00",
	))
	require.NoError(t, err)
	_, err = service.Commit(userID, committed.BatchID, CommitOptions{})
	require.NoError(t, err)

	err = service.DeleteBatch(userID, committed.BatchID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListRowsPaginationAndFilter(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	userID := uuid.New()
	account := seedAccount(t, db, userID, "Checking")

	summary, err := service.Upload(userID, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,First,-1.00",
		"2024-04-11,Second,-2.00",
		"2024-04-12,Third,-3.00",
		"bad,Fourth,-4.00",
	))
	require.NoError(t, err)

	page, err := service.ListRows(userID, summary.BatchID, "", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.TotalElements)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, 1, page.Rows[0].RowIndex)

	errorsOnly, err := service.ListRows(userID, summary.BatchID, models.RowError, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), errorsOnly.TotalElements)

	_, err = service.ListRows(userID, summary.BatchID, "BOGUS", 0, 20)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUserIsolation(t *testing.T) {
	db := newTestDB(t)
	service := newTestService(db)
	owner := uuid.New()
	intruder := uuid.New()
	account := seedAccount(t, db, owner, "Checking")

	summary, err := service.Upload(owner, account.ID, "statement.csv", csvFile(
		"date,description,amount",
		"2024-04-10,Supermercado,-120.50",
	))
	require.NoError(t, err)

	_, err = service.GetBatch(intruder, summary.BatchID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = service.Commit(intruder, summary.BatchID, CommitOptions{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, service.DeleteBatch(intruder, summary.BatchID), apperr.ErrNotFound)
}
