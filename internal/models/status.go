package models

// ImportRowStatus is the staging state of a single parsed CSV line.
type ImportRowStatus string

const (
	RowParsed    ImportRowStatus = "PARSED"
	RowReady     ImportRowStatus = "READY"
	RowDuplicate ImportRowStatus = "DUPLICATE"
	RowError     ImportRowStatus = "ERROR"
	RowCommitted ImportRowStatus = "COMMITTED"
)

var rowTransitions = map[ImportRowStatus][]ImportRowStatus{
	RowParsed: {RowReady, RowDuplicate, RowError},
	RowReady:  {RowCommitted, RowDuplicate, RowError},
}

// CanTransition reports whether a row may move from one status to another.
// ERROR, DUPLICATE and COMMITTED are terminal within a batch.
func (s ImportRowStatus) CanTransition(to ImportRowStatus) bool {
	for _, next := range rowTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ImportRowStatus) Valid() bool {
	switch s {
	case RowParsed, RowReady, RowDuplicate, RowError, RowCommitted:
		return true
	}
	return false
}

// ImportBatchStatus is the lifecycle state of one upload.
type ImportBatchStatus string

const (
	BatchUploaded  ImportBatchStatus = "UPLOADED"
	BatchParsed    ImportBatchStatus = "PARSED"
	BatchCommitted ImportBatchStatus = "COMMITTED"
)

func (s ImportBatchStatus) CanTransition(to ImportBatchStatus) bool {
	switch s {
	case BatchUploaded:
		return to == BatchParsed
	case BatchParsed:
		return to == BatchParsed || to == BatchCommitted
	}
	return false
}

// PaymentType distinguishes direct account-debit rows from card rows.
type PaymentType string

const (
	PaymentPIX  PaymentType = "PIX"
	PaymentCard PaymentType = "CARD"
)

func (p PaymentType) Valid() bool {
	return p == PaymentPIX || p == PaymentCard
}

// TxnDirection is the money flow direction; amounts are stored as
// non-negative cents with the direction alongside.
type TxnDirection string

const (
	DirectionIn  TxnDirection = "IN"
	DirectionOut TxnDirection = "OUT"
)

// CategorizationMode records how a transaction got its category.
type CategorizationMode string

const (
	CategorizedManual CategorizationMode = "MANUAL"
	CategorizedRule   CategorizationMode = "RULE"
	CategorizedImport CategorizationMode = "IMPORT"
)

// RuleMatchType selects the string-matching strategy for a rule pattern.
type RuleMatchType string

const (
	MatchContains   RuleMatchType = "CONTAINS"
	MatchStartsWith RuleMatchType = "STARTS_WITH"
	MatchRegex      RuleMatchType = "REGEX"
)

func (m RuleMatchType) Valid() bool {
	switch m {
	case MatchContains, MatchStartsWith, MatchRegex:
		return true
	}
	return false
}

// TxnStatus and TxnType are carried on the ledger record.
type TxnStatus string

const (
	TxnPosted TxnStatus = "POSTED"
)

type TxnType string

const (
	TxnNormal TxnType = "NORMAL"
)
