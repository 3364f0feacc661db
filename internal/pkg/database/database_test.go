package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/dbtest"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, database.Classify(nil, "course", "1"))

	err := database.Classify(gorm.ErrRecordNotFound, "course", "1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "course not found with id 1", err.Error())

	err = database.Classify(gorm.ErrDuplicatedKey, "lesson", "2")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	other := errors.New("boom")
	assert.Same(t, other, database.Classify(other, "x", "y"))
}

func TestTxCommit(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	tx, err := database.Begin(ctx, db)
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.DB.Create(&models.Course{Name: "Go", Description: "d"}).Error)
	require.NoError(t, tx.Commit())
	assert.True(t, tx.Finished())
	assert.ErrorIs(t, tx.Commit(), database.ErrTxFinished)

	var count int64
	require.NoError(t, db.Model(&models.Course{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTxRollbackDiscardsWrites(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	func() {
		tx, err := database.Begin(ctx, db)
		require.NoError(t, err)
		defer tx.Rollback()
		require.NoError(t, tx.DB.Create(&models.Course{Name: "Go", Description: "d"}).Error)
	}()

	var count int64
	require.NoError(t, db.Model(&models.Course{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db := dbtest.Open(t)

	course := models.Course{Name: "Go", Description: "d"}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&models.CourseSection{CourseID: course.ID, Name: "a", Order: 0}).Error)

	err := db.Create(&models.CourseSection{CourseID: course.ID, Name: "b", Order: 0}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, database.Classify(err, "section", ""), apperror.ErrConflict)
}
