package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"

	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

var requiredColumns = []string{"date", "description", "amount"}

// ParsedRow is one CSV data line after parsing. A row-level problem leaves
// Status == ERROR with a message; the rest of the file is unaffected.
type ParsedRow struct {
	RowIndex        int
	RawLine         string
	Date            time.Time
	Description     string
	AmountCents     int64
	Direction       models.TxnDirection
	PaymentType     models.PaymentType
	AccountRef      string
	CardRef         string
	CategoryName    string
	SubcategoryName string
	Status          models.ImportRowStatus
	ErrorMessage    string
}

// ParseCSV reads an entire statement export. The only way the whole parse
// fails is a missing required column in the header; everything else degrades
// to per-row errors.
func ParseCSV(r io.Reader) ([]ParsedRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", apperr.ErrValidation)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q: %w", required, apperr.ErrValidation)
		}
	}
	_, hasPaymentMethod := columns["payment_method"]

	var rows []ParsedRow
	index := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed CSV: %w", apperr.ErrValidation)
		}
		if strings.Join(record, "") == "" {
			continue
		}
		index++
		rows = append(rows, parseRecord(index, record, columns, hasPaymentMethod))
	}
	return rows, nil
}

func parseRecord(index int, record []string, columns map[string]int, hasPaymentMethod bool) ParsedRow {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := ParsedRow{
		RowIndex:        index,
		RawLine:         strings.Join(record, ","),
		Description:     field("description"),
		AccountRef:      field("account"),
		CardRef:         field("card"),
		CategoryName:    field("category"),
		SubcategoryName: field("subcategory"),
		Status:          models.RowParsed,
	}

	fail := func(msg string) ParsedRow {
		row.Status = models.RowError
		row.ErrorMessage = msg
		return row
	}

	dateValue := field("date")
	if dateValue == "" {
		return fail("invalid date")
	}
	date, err := time.Parse(dateFormat, dateValue)
	if err != nil {
		return fail("invalid date")
	}
	row.Date = date

	amountValue := field("amount")
	if amountValue == "" {
		return fail("invalid amount")
	}
	amount, err := decimal.NewFromString(amountValue)
	if err != nil {
		return fail("invalid amount")
	}
	if amount.IsZero() {
		return fail("amount cannot be zero")
	}
	row.Direction = models.DirectionIn
	if amount.IsNegative() {
		row.Direction = models.DirectionOut
	}
	row.AmountCents = amount.Abs().Shift(2).IntPart()

	// Without a payment_method column every row is a direct-channel row and
	// the account/card columns stay optional.
	row.PaymentType = models.PaymentPIX
	if hasPaymentMethod {
		value := field("payment_method")
		if value == "" {
			value = string(models.PaymentPIX)
		}
		paymentType := models.PaymentType(strings.ToUpper(value))
		if !paymentType.Valid() {
			return fail("invalid payment_method: must be PIX or CARD")
		}
		row.PaymentType = paymentType
		if paymentType == models.PaymentPIX && row.AccountRef == "" {
			return fail("PIX row requires an 'account' value")
		}
		if paymentType == models.PaymentCard && row.CardRef == "" {
			return fail("CARD row requires a 'card' value")
		}
	}

	return row
}
