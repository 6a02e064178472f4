package importer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"
	"moneta-backend/internal/repository"
	"moneta-backend/internal/services/alerts"
	"moneta-backend/internal/services/rules"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ImportService struct {
	importRepo   *repository.ImportRepository
	txnRepo      *repository.TransactionRepository
	accountRepo  *repository.AccountRepository
	cardRepo     *repository.CardRepository
	categoryRepo *repository.CategoryRepository
	ruleService  *rules.RuleService
	notifier     *alerts.Notifier
	db           *gorm.DB
}

func NewImportService(
	importRepo *repository.ImportRepository,
	txnRepo *repository.TransactionRepository,
	accountRepo *repository.AccountRepository,
	cardRepo *repository.CardRepository,
	categoryRepo *repository.CategoryRepository,
	ruleService *rules.RuleService,
	notifier *alerts.Notifier,
) *ImportService {
	return &ImportService{
		importRepo:   importRepo,
		txnRepo:      txnRepo,
		accountRepo:  accountRepo,
		cardRepo:     cardRepo,
		categoryRepo: categoryRepo,
		ruleService:  ruleService,
		notifier:     notifier,
		db:           importRepo.DB(),
	}
}

type BatchTotals struct {
	TotalRows     int `json:"totalRows"`
	ErrorRows     int `json:"errorRows"`
	DuplicateRows int `json:"duplicateRows"`
	ReadyRows     int `json:"readyRows"`
	CommittedRows int `json:"committedRows"`
}

type BatchSummary struct {
	BatchID    uuid.UUID                `json:"batchId"`
	AccountID  uuid.UUID                `json:"accountId"`
	Filename   string                   `json:"filename"`
	UploadedAt time.Time                `json:"uploadedAt"`
	Status     models.ImportBatchStatus `json:"status"`
	Totals     BatchTotals              `json:"totals"`
}

type RowView struct {
	ID                    uuid.UUID              `json:"id"`
	RowIndex              int                    `json:"rowIndex"`
	ParsedDate            *time.Time             `json:"parsedDate"`
	Description           string                 `json:"description"`
	AmountCents           int64                  `json:"amountCents"`
	Direction             models.TxnDirection    `json:"direction"`
	PaymentType           models.PaymentType     `json:"paymentType"`
	ResolvedCategoryID    *uuid.UUID             `json:"resolvedCategoryId"`
	ResolvedSubcategoryID *uuid.UUID             `json:"resolvedSubcategoryId"`
	Status                models.ImportRowStatus `json:"status"`
	ErrorMessage          string                 `json:"errorMessage,omitempty"`
	CreatedTxnID          *uuid.UUID             `json:"createdTxnId"`
}

type RowsPage struct {
	Rows          []RowView   `json:"rows"`
	Page          int         `json:"page"`
	Size          int         `json:"size"`
	TotalElements int64       `json:"totalElements"`
	Totals        BatchTotals `json:"totals"`
}

// CommitOptions all default to true when absent.
type CommitOptions struct {
	ApplyRulesAfterCommit *bool `json:"applyRulesAfterCommit"`
	SkipDuplicates        *bool `json:"skipDuplicates"`
	CommitOnlyReady       *bool `json:"commitOnlyReady"`
}

type CommitResult struct {
	CreatedTxns int                      `json:"createdTxns"`
	Duplicates  int                      `json:"duplicates"`
	Errors      int                      `json:"errors"`
	Updated     int                      `json:"updated"`
	BatchStatus models.ImportBatchStatus `json:"batchStatus"`
}

// Upload parses the file, stages one row per data line and classifies each
// as READY, DUPLICATE or ERROR. A missing required column rejects the whole
// upload before any batch exists; anything else is row-local.
func (s *ImportService) Upload(userID, accountID uuid.UUID, filename string, file io.Reader) (*BatchSummary, error) {
	account, err := s.accountRepo.GetByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseCSV(file)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = "upload.csv"
	}
	now := time.Now()
	batch := &models.ImportBatch{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  account.ID,
		Filename:   filename,
		UploadedAt: now,
		Status:     models.BatchUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.importRepo.CreateBatch(batch); err != nil {
		return nil, err
	}

	existing, err := s.fingerprintSet(userID)
	if err != nil {
		return nil, err
	}
	staged := make(map[string]struct{})

	rows := make([]*models.ImportRow, 0, len(parsed))
	for _, parsedRow := range parsed {
		row, err := s.stageRow(batch, parsedRow, existing, staged)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := s.importRepo.CreateRows(rows); err != nil {
		return nil, err
	}

	if err := s.updateTotals(batch); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"batch":     batch.ID,
		"file":      filename,
		"total":     batch.TotalRows,
		"ready":     batch.ReadyRows,
		"duplicate": batch.DuplicateRows,
		"error":     batch.ErrorRows,
	}).Info("csv staged")

	summary := s.toSummary(batch)
	return &summary, nil
}

// stageRow turns one parsed line into a persisted ImportRow, resolving
// references and running the staging-time dedup check. Rows are processed in
// file order, so a line duplicating an earlier line of the same file lands
// on DUPLICATE deterministically.
func (s *ImportService) stageRow(
	batch *models.ImportBatch,
	parsedRow ParsedRow,
	existing, staged map[string]struct{},
) (*models.ImportRow, error) {
	now := time.Now()
	row := &models.ImportRow{
		ID:                uuid.New(),
		BatchID:           batch.ID,
		UserID:            batch.UserID,
		RowIndex:          parsedRow.RowIndex,
		RawLine:           parsedRow.RawLine,
		Description:       parsedRow.Description,
		AmountCents:       parsedRow.AmountCents,
		Direction:         parsedRow.Direction,
		PaymentType:       parsedRow.PaymentType,
		ParsedAccountName: parsedRow.AccountRef,
		ParsedCardName:    parsedRow.CardRef,
		Status:            parsedRow.Status,
		ErrorMessage:      parsedRow.ErrorMessage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if parsedRow.Status != models.RowParsed {
		return row, nil
	}
	date := parsedRow.Date
	row.ParsedDate = &date

	// Category misses are not errors; the row just stays uncategorized.
	if parsedRow.CategoryName != "" {
		category, err := s.categoryRepo.FindByName(batch.UserID, parsedRow.CategoryName)
		if err == nil {
			row.ResolvedCategoryID = &category.ID
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	if parsedRow.SubcategoryName != "" {
		subcategory, err := s.categoryRepo.FindByName(batch.UserID, parsedRow.SubcategoryName)
		if err == nil {
			row.ResolvedSubcategoryID = &subcategory.ID
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	switch parsedRow.PaymentType {
	case models.PaymentPIX:
		// No explicit account reference means the upload's target account.
		if parsedRow.AccountRef != "" {
			account, err := s.accountRepo.ResolveRef(batch.UserID, parsedRow.AccountRef)
			if errors.Is(err, apperr.ErrNotFound) {
				if err := row.Transition(models.RowError); err != nil {
					return nil, err
				}
				row.ErrorMessage = fmt.Sprintf("account not found: %s", parsedRow.AccountRef)
				return row, nil
			}
			if err != nil {
				return nil, err
			}
			row.ResolvedAccountID = &account.ID
		}
	case models.PaymentCard:
		card, err := s.cardRepo.ResolveRef(batch.UserID, parsedRow.CardRef)
		if errors.Is(err, apperr.ErrNotFound) {
			if err := row.Transition(models.RowError); err != nil {
				return nil, err
			}
			row.ErrorMessage = fmt.Sprintf("card not found: %s", parsedRow.CardRef)
			return row, nil
		}
		if err != nil {
			return nil, err
		}
		row.ResolvedCardID = &card.ID
	}

	hash := Fingerprint(
		batch.UserID,
		row.PaymentType,
		s.targetID(batch, row),
		parsedRow.Date,
		row.AmountCents,
		row.Direction,
		row.Description,
	)
	_, seenBefore := existing[hash]
	_, seenInFile := staged[hash]
	if seenBefore || seenInFile {
		if err := row.Transition(models.RowDuplicate); err != nil {
			return nil, err
		}
		row.ErrorMessage = "duplicate"
		row.Hash = nil
	} else {
		if err := row.Transition(models.RowReady); err != nil {
			return nil, err
		}
		row.Hash = &hash
		staged[hash] = struct{}{}
	}
	return row, nil
}

// targetID picks the account-or-card the row settles against: the resolved
// account (falling back to the batch's target account) for PIX rows, the
// resolved card otherwise.
func (s *ImportService) targetID(batch *models.ImportBatch, row *models.ImportRow) uuid.UUID {
	if row.PaymentType == models.PaymentPIX {
		if row.ResolvedAccountID != nil {
			return *row.ResolvedAccountID
		}
		return batch.AccountID
	}
	if row.ResolvedCardID != nil {
		return *row.ResolvedCardID
	}
	return uuid.Nil
}

// fingerprintSet seeds dedup with the fingerprints of the user's active
// posted transactions, preferring the stored dedup key and recomputing from
// fields for transactions that predate it.
func (s *ImportService) fingerprintSet(userID uuid.UUID) (map[string]struct{}, error) {
	txns, err := s.txnRepo.ListActive(userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(txns))
	for i := range txns {
		txn := &txns[i]
		if txn.DedupHash != nil && *txn.DedupHash != "" {
			set[*txn.DedupHash] = struct{}{}
			continue
		}
		var target *uuid.UUID
		if txn.PaymentType == models.PaymentPIX {
			target = txn.AccountID
		} else {
			target = txn.CardID
		}
		if target == nil {
			continue
		}
		set[Fingerprint(
			userID, txn.PaymentType, *target,
			txn.OccurredAt, txn.AmountCents, txn.Direction, txn.Description,
		)] = struct{}{}
	}
	return set, nil
}

// Commit turns READY rows into ledger transactions exactly once. The
// fingerprint set is seeded once per call and grown as inserts land, so a
// file whose rows collide with each other, with history, or with a
// concurrent commit all resolve to DUPLICATE rather than double entries.
func (s *ImportService) Commit(userID, batchID uuid.UUID, opts CommitOptions) (*CommitResult, error) {
	batch, err := s.importRepo.GetBatch(userID, batchID)
	if err != nil {
		return nil, err
	}

	applyRules := opts.ApplyRulesAfterCommit == nil || *opts.ApplyRulesAfterCommit
	skipDuplicates := opts.SkipDuplicates == nil || *opts.SkipDuplicates
	commitOnlyReady := opts.CommitOnlyReady == nil || *opts.CommitOnlyReady

	rows, err := s.importRepo.RowsForCommit(userID, batchID, commitOnlyReady)
	if err != nil {
		return nil, err
	}
	existing, err := s.fingerprintSet(userID)
	if err != nil {
		return nil, err
	}

	created := 0
	duplicates := 0
	var createdTxns []*models.Transaction
	var dirty []*models.ImportRow

	for _, row := range rows {
		if row.Status != models.RowReady {
			continue
		}

		target, rowErr := s.commitTarget(batch, row)
		if rowErr != "" {
			if err := row.Transition(models.RowError); err != nil {
				return nil, err
			}
			row.ErrorMessage = rowErr
			row.Hash = nil
			dirty = append(dirty, row)
			continue
		}

		hash := ""
		if row.Hash != nil {
			hash = *row.Hash
		} else {
			hash = Fingerprint(
				userID, row.PaymentType, target,
				*row.ParsedDate, row.AmountCents, row.Direction, row.Description,
			)
		}

		if skipDuplicates {
			if _, dup := existing[hash]; dup {
				if err := s.demoteDuplicate(row); err != nil {
					return nil, err
				}
				dirty = append(dirty, row)
				duplicates++
				continue
			}
		}

		txn := s.buildTxn(batch, row, target, hash)
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(txn).Error; err != nil {
				return err
			}
			if err := row.Transition(models.RowCommitted); err != nil {
				return err
			}
			row.CreatedTxnID = &txn.ID
			row.Hash = &hash
			return tx.Save(row).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another unit of work claimed this fingerprint between our seed
			// read and the insert: a late duplicate, not a failure.
			if err := s.demoteDuplicate(row); err != nil {
				return nil, err
			}
			dirty = append(dirty, row)
			duplicates++
			continue
		}
		if err != nil {
			return nil, err
		}

		created++
		createdTxns = append(createdTxns, txn)
		existing[hash] = struct{}{}
	}

	if err := s.importRepo.SaveRows(dirty); err != nil {
		return nil, err
	}

	if applyRules && len(createdTxns) > 0 {
		if _, err := s.ruleService.ApplyToTransactions(userID, createdTxns); err != nil {
			return nil, err
		}
	}
	for _, txn := range createdTxns {
		s.notifier.TransactionPosted(txn)
	}

	if err := s.updateTotals(batch); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"batch":      batch.ID,
		"created":    created,
		"duplicates": duplicates,
		"errors":     batch.ErrorRows,
		"status":     batch.Status,
	}).Info("batch committed")

	return &CommitResult{
		CreatedTxns: created,
		Duplicates:  duplicates,
		Errors:      batch.ErrorRows,
		Updated:     created + duplicates,
		BatchStatus: batch.Status,
	}, nil
}

// commitTarget re-checks the row's account/card right before insert. A
// reference that went missing since staging flips only this row to ERROR.
func (s *ImportService) commitTarget(batch *models.ImportBatch, row *models.ImportRow) (uuid.UUID, string) {
	if row.PaymentType == models.PaymentPIX {
		accountID := batch.AccountID
		if row.ResolvedAccountID != nil {
			accountID = *row.ResolvedAccountID
		}
		if _, err := s.accountRepo.GetByID(batch.UserID, accountID); err != nil {
			return uuid.Nil, "account no longer available"
		}
		return accountID, ""
	}
	if row.ResolvedCardID == nil {
		return uuid.Nil, "card no longer available"
	}
	if _, err := s.cardRepo.GetByID(batch.UserID, *row.ResolvedCardID); err != nil {
		return uuid.Nil, "card no longer available"
	}
	return *row.ResolvedCardID, ""
}

func (s *ImportService) demoteDuplicate(row *models.ImportRow) error {
	if err := row.Transition(models.RowDuplicate); err != nil {
		return err
	}
	row.ErrorMessage = "duplicate"
	row.Hash = nil
	return nil
}

func (s *ImportService) buildTxn(batch *models.ImportBatch, row *models.ImportRow, target uuid.UUID, hash string) *models.Transaction {
	txn := &models.Transaction{
		ID:                 uuid.New(),
		UserID:             batch.UserID,
		PaymentType:        row.PaymentType,
		AmountCents:        row.AmountCents,
		Direction:          row.Direction,
		Description:        row.Description,
		OccurredAt:         *row.ParsedDate,
		MonthRef:           row.ParsedDate.Format("2006-01"),
		Status:             models.TxnPosted,
		TxnType:            models.TxnNormal,
		CategoryID:         row.ResolvedCategoryID,
		SubcategoryID:      row.ResolvedSubcategoryID,
		CategorizationMode: models.CategorizedImport,
		ImportBatchID:      &batch.ID,
		ImportRowID:        &row.ID,
		DedupHash:          &hash,
		IsActive:           true,
		CreatedAt:          time.Now(),
	}
	targetID := target
	if row.PaymentType == models.PaymentPIX {
		txn.AccountID = &targetID
	} else {
		txn.CardID = &targetID
	}
	return txn
}

// updateTotals recomputes the batch counters from the row partition and
// advances the batch status. COMMITTED is reached only when every row is
// terminal and at least one actually committed.
func (s *ImportService) updateTotals(batch *models.ImportBatch) error {
	counts, err := s.importRepo.CountRowsByStatus(batch.UserID, batch.ID)
	if err != nil {
		return err
	}
	batch.TotalRows = counts.Total
	batch.ErrorRows = counts.Error
	batch.DuplicateRows = counts.Duplicate
	batch.ReadyRows = counts.Ready
	batch.CommittedRows = counts.Committed
	batch.UpdatedAt = time.Now()

	if batch.Status.CanTransition(models.BatchParsed) {
		batch.Status = models.BatchParsed
	}
	allTerminal := counts.Committed+counts.Duplicate+counts.Error == counts.Total
	if counts.Total > 0 && counts.Committed > 0 && counts.Ready == 0 && allTerminal &&
		batch.Status.CanTransition(models.BatchCommitted) {
		batch.Status = models.BatchCommitted
	}
	return s.importRepo.SaveBatch(batch)
}

func (s *ImportService) ListBatches(userID uuid.UUID) ([]BatchSummary, error) {
	batches, err := s.importRepo.ListBatches(userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]BatchSummary, 0, len(batches))
	for i := range batches {
		summaries = append(summaries, s.toSummary(&batches[i]))
	}
	return summaries, nil
}

func (s *ImportService) GetBatch(userID, batchID uuid.UUID) (*BatchSummary, error) {
	batch, err := s.importRepo.GetBatch(userID, batchID)
	if err != nil {
		return nil, err
	}
	summary := s.toSummary(batch)
	return &summary, nil
}

func (s *ImportService) ListRows(userID, batchID uuid.UUID, status models.ImportRowStatus, page, size int) (*RowsPage, error) {
	batch, err := s.importRepo.GetBatch(userID, batchID)
	if err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("invalid row status %q: %w", status, apperr.ErrValidation)
	}
	rows, total, err := s.importRepo.ListRowsPage(userID, batchID, status, page, size)
	if err != nil {
		return nil, err
	}

	views := make([]RowView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		views = append(views, RowView{
			ID:                    row.ID,
			RowIndex:              row.RowIndex,
			ParsedDate:            row.ParsedDate,
			Description:           row.Description,
			AmountCents:           row.AmountCents,
			Direction:             row.Direction,
			PaymentType:           row.PaymentType,
			ResolvedCategoryID:    row.ResolvedCategoryID,
			ResolvedSubcategoryID: row.ResolvedSubcategoryID,
			Status:                row.Status,
			ErrorMessage:          row.ErrorMessage,
			CreatedTxnID:          row.CreatedTxnID,
		})
	}
	return &RowsPage{
		Rows:          views,
		Page:          page,
		Size:          size,
		TotalElements: total,
		Totals:        s.toTotals(batch),
	}, nil
}

// DeleteBatch removes a staged batch and its rows. A committed batch is
// append-only history and can never be deleted.
func (s *ImportService) DeleteBatch(userID, batchID uuid.UUID) error {
	batch, err := s.importRepo.GetBatch(userID, batchID)
	if err != nil {
		return err
	}
	if batch.Status == models.BatchCommitted {
		return fmt.Errorf("batch already committed: %w", apperr.ErrConflict)
	}
	return s.importRepo.DeleteBatch(batch)
}

func (s *ImportService) toTotals(batch *models.ImportBatch) BatchTotals {
	return BatchTotals{
		TotalRows:     batch.TotalRows,
		ErrorRows:     batch.ErrorRows,
		DuplicateRows: batch.DuplicateRows,
		ReadyRows:     batch.ReadyRows,
		CommittedRows: batch.CommittedRows,
	}
}

func (s *ImportService) toSummary(batch *models.ImportBatch) BatchSummary {
	return BatchSummary{
		BatchID:    batch.ID,
		AccountID:  batch.AccountID,
		Filename:   batch.Filename,
		UploadedAt: batch.UploadedAt,
		Status:     batch.Status,
		Totals:     s.toTotals(batch),
	}
}
