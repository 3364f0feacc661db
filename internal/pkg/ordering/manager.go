// Package ordering keeps sibling rows in a caller-defined sequence.
//
// Positions are stored in sort_order and are unique per parent. They may have gaps
// after deletes; a full reorder always normalizes them to 0..n-1.
package ordering

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

const defaultInsertAttempts = 3

type Manager struct {
	db             *gorm.DB
	col            Collection
	log            *logger.Logger
	insertAttempts int
}

func NewManager(db *gorm.DB, col Collection, log *logger.Logger) *Manager {
	return &Manager{
		db:             db,
		col:            col,
		log:            log.With("collection", col.Name),
		insertAttempts: defaultInsertAttempts,
	}
}

// NextOrder returns max(sort_order)+1 among the parent's children, or 0 when there are
// none. It must run on the transaction that performs the insert.
func (m *Manager) NextOrder(ctx context.Context, tx *gorm.DB, parentID string) (int, error) {
	var next int
	err := tx.WithContext(ctx).
		Model(m.col.newItem()).
		Select("COALESCE(MAX(sort_order), -1) + 1").
		Where(m.col.ParentColumn+" = ?", parentID).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// InsertAtEnd appends item after its current last sibling. A unique violation on
// (parent, sort_order) from a concurrent append is retried a bounded number of times.
func (m *Manager) InsertAtEnd(ctx context.Context, item Item) error {
	var err error
	for attempt := 1; attempt <= m.insertAttempts; attempt++ {
		err = m.insertOnce(ctx, item)
		if !errors.Is(err, apperror.ErrConflict) {
			return err
		}
		m.log.Warn("append lost position race, retrying", "parent_id", item.OrderParentID(), "attempt", attempt)
	}
	return err
}

func (m *Manager) insertOnce(ctx context.Context, item Item) error {
	parentID := item.OrderParentID()

	tx, err := database.Begin(ctx, m.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.lockParent(tx.DB, parentID); err != nil {
		return err
	}

	next, err := m.NextOrder(ctx, tx.DB, parentID)
	if err != nil {
		return apperror.TransactionAborted("compute next "+m.col.Name+" order", err)
	}
	item.SetOrder(next)

	if err := tx.DB.Create(item).Error; err != nil {
		return apperror.TransactionAborted("insert "+m.col.Name, database.Classify(err, m.col.Name, ""))
	}
	return tx.Commit()
}

// Reorder assigns sort_order = index to every id. ids must be exactly the current set of
// children of parentID; anything else is a validation failure and nothing is written.
func (m *Manager) Reorder(ctx context.Context, parentID string, ids []string) error {
	tx, err := database.Begin(ctx, m.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.lockParent(tx.DB, parentID); err != nil {
		return err
	}

	var current []string
	if err := tx.DB.Model(m.col.newItem()).
		Where(m.col.ParentColumn+" = ?", parentID).
		Pluck("id", &current).Error; err != nil {
		return apperror.TransactionAborted("load "+m.col.Name+" siblings", err)
	}

	if err := sameSet(current, ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return tx.Commit()
	}

	// Two passes: first park every row on a negative slot so the final assignment
	// never collides with a position still held by a sibling.
	for i, id := range ids {
		if err := m.setOrder(tx.DB, parentID, id, -(i + 1)); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if err := m.setOrder(tx.DB, parentID, id, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	m.log.Info("reordered", "parent_id", parentID, "count", len(ids))
	return nil
}

func (m *Manager) setOrder(tx *gorm.DB, parentID, id string, order int) error {
	res := tx.Model(m.col.newItem()).
		Where("id = ? AND "+m.col.ParentColumn+" = ?", id, parentID).
		UpdateColumn("sort_order", order)
	if res.Error != nil {
		return apperror.TransactionAborted("update "+m.col.Name+" order", database.Classify(res.Error, m.col.Name, id))
	}
	if res.RowsAffected != 1 {
		return apperror.TransactionAborted("update "+m.col.Name+" order",
			fmt.Errorf("%s %s changed during reorder", m.col.Name, id))
	}
	return nil
}

// Delete removes one row. Remaining siblings keep their positions.
func (m *Manager) Delete(ctx context.Context, id string) error {
	res := m.db.WithContext(ctx).Where("id = ?", id).Delete(m.col.newItem())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound(m.col.Name, id)
	}
	return nil
}

// ResolveParent returns the single parent shared by all ids.
func (m *Manager) ResolveParent(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", apperror.ValidationFailed("order", "at least one id is required")
	}

	var parents []string
	err := m.db.WithContext(ctx).
		Model(m.col.newItem()).
		Distinct(m.col.ParentColumn).
		Where("id IN ?", ids).
		Pluck(m.col.ParentColumn, &parents).Error
	if err != nil {
		return "", err
	}

	switch len(parents) {
	case 0:
		return "", apperror.NotFound(m.col.Name, ids[0])
	case 1:
		return parents[0], nil
	default:
		return "", apperror.ValidationFailed("order", fmt.Sprintf("%s ids span %d different %ss", m.col.Name, len(parents), m.col.ParentName))
	}
}

// lockParent serializes writers on the same parent. SQLite drops the locking clause;
// there the write transaction is already exclusive.
func (m *Manager) lockParent(tx *gorm.DB, parentID string) error {
	err := database.LockForUpdate(tx, m.col.newParent(), parentID)
	if err != nil {
		return database.Classify(err, m.col.ParentName, parentID)
	}
	return nil
}

func sameSet(current, requested []string) error {
	existing := make(map[string]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			return apperror.ValidationFailed("order", "duplicate id "+id)
		}
		seen[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			return apperror.ValidationFailed("order", "id "+id+" is not a child of this parent")
		}
	}
	if len(seen) != len(existing) {
		return apperror.ValidationFailed("order", fmt.Sprintf("expected %d ids, got %d", len(existing), len(seen)))
	}
	return nil
}
