// Package alerts is the narrow seam toward the budget evaluator: commit
// tells it about newly posted transactions and it records at most one
// category-activity alert per user/category/month.
package alerts

import (
	"fmt"
	"time"

	"moneta-backend/internal/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const kindCategoryActivity = "CATEGORY_ACTIVITY"

type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

// TransactionPosted raises the month's category-activity alert. Two
// concurrent commits may both attempt it; the unique index makes the later
// insert a silent no-op instead of an error.
func (n *Notifier) TransactionPosted(txn *models.Transaction) {
	if txn.CategoryID == nil {
		return
	}
	alert := &models.Alert{
		ID:         uuid.New(),
		UserID:     txn.UserID,
		CategoryID: *txn.CategoryID,
		MonthRef:   txn.MonthRef,
		Kind:       kindCategoryActivity,
		Message:    fmt.Sprintf("new activity in %s", txn.MonthRef),
		CreatedAt:  time.Now(),
	}
	err := n.db.Clauses(clause.OnConflict{DoNothing: true}).Create(alert).Error
	if err != nil {
		// Alerting must never fail a commit.
		log.WithError(err).Warn("alert insert failed")
	}
}
