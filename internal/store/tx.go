package store

import (
	"errors"

	"github.com/securedocs/backend/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

const minTxRetries = 3

// WithTxRetry runs fn in a transaction, retrying the whole transaction when it
// fails. Conflicts on the one-success index are resolved this way: the retried
// transaction sees the committed winner and demotes it.
func WithTxRetry(db *gorm.DB, retries int, fn func(tx *gorm.DB) error) error {
	var err error

	if retries < minTxRetries {
		retries = minTxRetries
	}

	for i := 0; i < retries; i++ {
		err = db.Transaction(fn)
		if err == nil || !retryable(err) {
			break
		}
	}

	return err
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, models.ErrInvalidTransition)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
