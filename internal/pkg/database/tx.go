package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

var ErrTxFinished = errors.New("transaction already finished")

// Tx is an explicitly scoped transaction handle. The intended use is
//
//	tx, err := database.Begin(ctx, db)
//	if err != nil { return err }
//	defer tx.Rollback()
//	... tx.DB ...
//	return tx.Commit()
//
// Rollback after Commit is a no-op, so every exit path ends in exactly one of the two.
type Tx struct {
	DB   *gorm.DB
	done bool
}

func Begin(ctx context.Context, db *gorm.DB) (*Tx, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperror.TransactionAborted("begin transaction", tx.Error)
	}
	return &Tx{DB: tx}, nil
}

func (t *Tx) Commit() error {
	if t.done {
		return ErrTxFinished
	}
	t.done = true
	if err := t.DB.Commit().Error; err != nil {
		return apperror.TransactionAborted("commit transaction", Classify(err, "transaction", ""))
	}
	return nil
}

// Rollback discards the transaction unless it was already committed or rolled back.
func (t *Tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.DB.Rollback()
}

// Finished reports whether Commit or Rollback has run.
func (t *Tx) Finished() bool {
	return t.done
}

// LockForUpdate takes a row lock on the given model by primary key. Dialects without
// row locks (SQLite) drop the clause; there the write transaction already serializes.
func LockForUpdate(tx *gorm.DB, model interface{}, id string) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		Take(model).Error
	return err
}
