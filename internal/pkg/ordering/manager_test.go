package ordering_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/dbtest"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/ordering"
)

func setupCourse(t *testing.T, db *gorm.DB) *models.Course {
	t.Helper()
	course := &models.Course{Name: "Go", Description: "Learn Go"}
	require.NoError(t, db.Create(course).Error)
	return course
}

func appendSections(t *testing.T, m *ordering.Manager, courseID string, names ...string) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(names))
	for _, name := range names {
		s := &models.CourseSection{CourseID: courseID, Name: name, Status: models.SectionStatusPublic}
		require.NoError(t, m.InsertAtEnd(context.Background(), s))
		ids[name] = s.ID
	}
	return ids
}

func sectionOrders(t *testing.T, db *gorm.DB, courseID string) map[string]int {
	t.Helper()
	var sections []models.CourseSection
	require.NoError(t, db.Where("course_id = ?", courseID).Find(&sections).Error)
	out := make(map[string]int, len(sections))
	for _, s := range sections {
		out[s.Name] = s.Order
	}
	return out
}

func TestInsertAtEndAppends(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)

	next, err := m.NextOrder(context.Background(), db, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	appendSections(t, m, course.ID, "A", "B", "C")
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2}, sectionOrders(t, db, course.ID))

	next, err = m.NextOrder(context.Background(), db, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestInsertAtEndUnknownParent(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())

	err := m.InsertAtEnd(context.Background(), &models.CourseSection{CourseID: "missing", Name: "A"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReorderScenario(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)
	ids := appendSections(t, m, course.ID, "A", "B", "C")

	require.NoError(t, m.Reorder(context.Background(), course.ID, []string{ids["C"], ids["A"], ids["B"]}))
	assert.Equal(t, map[string]int{"C": 0, "A": 1, "B": 2}, sectionOrders(t, db, course.ID))
}

func TestReorderAllPermutations(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)
	ids := appendSections(t, m, course.ID, "A", "B", "C")

	perms := [][]string{
		{"A", "B", "C"}, {"A", "C", "B"}, {"B", "A", "C"},
		{"B", "C", "A"}, {"C", "A", "B"}, {"C", "B", "A"},
	}
	for _, perm := range perms {
		t.Run(fmt.Sprint(perm), func(t *testing.T) {
			order := make([]string, len(perm))
			for i, name := range perm {
				order[i] = ids[name]
			}
			require.NoError(t, m.Reorder(context.Background(), course.ID, order))

			got := sectionOrders(t, db, course.ID)
			for i, name := range perm {
				assert.Equal(t, i, got[name], name)
			}
		})
	}
}

func TestReorderRejectsMismatchedSets(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)
	other := setupCourse(t, db)
	ids := appendSections(t, m, course.ID, "A", "B", "C")
	foreign := appendSections(t, m, other.ID, "X")

	tests := []struct {
		name  string
		order []string
	}{
		{"missing id", []string{ids["C"], ids["A"]}},
		{"extra id", []string{ids["C"], ids["A"], ids["B"], "unknown"}},
		{"duplicate id", []string{ids["C"], ids["A"], ids["A"]}},
		{"foreign id", []string{ids["C"], ids["A"], foreign["X"]}},
		{"empty list", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Reorder(context.Background(), course.ID, tt.order)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2}, sectionOrders(t, db, course.ID))
		})
	}
}

func TestReorderEmptyParentIsNoop(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)

	assert.NoError(t, m.Reorder(context.Background(), course.ID, nil))
}

func TestDeleteLeavesGapUntilReorder(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)
	ids := appendSections(t, m, course.ID, "A", "B", "C")

	require.NoError(t, m.Delete(context.Background(), ids["B"]))
	assert.Equal(t, map[string]int{"A": 0, "C": 2}, sectionOrders(t, db, course.ID))

	appendSections(t, m, course.ID, "D")
	assert.Equal(t, 3, sectionOrders(t, db, course.ID)["D"])

	var remaining []string
	require.NoError(t, db.Model(&models.CourseSection{}).Where("course_id = ?", course.ID).Order("sort_order").Pluck("id", &remaining).Error)
	require.NoError(t, m.Reorder(context.Background(), course.ID, remaining))
	assert.Equal(t, map[string]int{"A": 0, "C": 1, "D": 2}, sectionOrders(t, db, course.ID))

	err := m.Delete(context.Background(), ids["B"])
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteSectionCascadesLessons(t *testing.T) {
	db := dbtest.Open(t)
	sections := ordering.NewManager(db, ordering.Sections, logger.Nop())
	lessons := ordering.NewManager(db, ordering.Lessons, logger.Nop())
	course := setupCourse(t, db)
	ids := appendSections(t, sections, course.ID, "A")

	require.NoError(t, lessons.InsertAtEnd(context.Background(), &models.Lesson{SectionID: ids["A"], Name: "l1", YoutubeVideoID: "v1"}))
	require.NoError(t, sections.Delete(context.Background(), ids["A"]))

	var count int64
	require.NoError(t, db.Model(&models.Lesson{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConcurrentInsertsNeverShareAPosition(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Lessons, logger.Nop())
	course := setupCourse(t, db)
	section := &models.CourseSection{CourseID: course.ID, Name: "S"}
	require.NoError(t, ordering.NewManager(db, ordering.Sections, logger.Nop()).InsertAtEnd(context.Background(), section))

	const n = 10
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return m.InsertAtEnd(context.Background(), &models.Lesson{
				SectionID:      section.ID,
				Name:           fmt.Sprintf("lesson %d", i),
				YoutubeVideoID: "vid",
			})
		})
	}
	require.NoError(t, g.Wait())

	var orders []int
	require.NoError(t, db.Model(&models.Lesson{}).Where("section_id = ?", section.ID).Order("sort_order").Pluck("sort_order", &orders).Error)
	require.Len(t, orders, n)
	for i, o := range orders {
		assert.Equal(t, i, o)
	}
}

func TestResolveParent(t *testing.T) {
	db := dbtest.Open(t)
	sections := ordering.NewManager(db, ordering.Sections, logger.Nop())
	lessons := ordering.NewManager(db, ordering.Lessons, logger.Nop())
	course := setupCourse(t, db)
	ids := appendSections(t, sections, course.ID, "A", "B")

	l1 := &models.Lesson{SectionID: ids["A"], Name: "l1", YoutubeVideoID: "v"}
	l2 := &models.Lesson{SectionID: ids["A"], Name: "l2", YoutubeVideoID: "v"}
	l3 := &models.Lesson{SectionID: ids["B"], Name: "l3", YoutubeVideoID: "v"}
	for _, l := range []*models.Lesson{l1, l2, l3} {
		require.NoError(t, lessons.InsertAtEnd(context.Background(), l))
	}

	parent, err := lessons.ResolveParent(context.Background(), []string{l2.ID, l1.ID})
	require.NoError(t, err)
	assert.Equal(t, ids["A"], parent)

	_, err = lessons.ResolveParent(context.Background(), []string{l1.ID, l3.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = lessons.ResolveParent(context.Background(), []string{"nope"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = lessons.ResolveParent(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// occupyNextSlot registers a create callback that, on the first `steals` section inserts,
// writes a competing row at the position the append just computed.
func occupyNextSlot(t *testing.T, db *gorm.DB, steals int) *int {
	t.Helper()
	calls := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:occupy_next_slot", func(tx *gorm.DB) {
		section, ok := tx.Statement.Dest.(*models.CourseSection)
		if !ok {
			return
		}
		calls++
		if calls > steals {
			return
		}
		now := time.Now()
		tx.AddError(tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO course_sections (id, course_id, name, status, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			fmt.Sprintf("competing-%d", calls), section.CourseID, "competing", models.SectionStatusPublic, section.Order, now, now,
		).Error)
	})
	require.NoError(t, err)
	return &calls
}

func TestInsertAtEndRetriesLostPosition(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)
	appendSections(t, m, course.ID, "A")

	calls := occupyNextSlot(t, db, 1)

	s := &models.CourseSection{CourseID: course.ID, Name: "B", Status: models.SectionStatusPublic}
	require.NoError(t, m.InsertAtEnd(context.Background(), s))

	assert.Equal(t, 2, *calls)
	assert.Equal(t, 1, s.Order)
	// the competing row was written inside the rolled back attempt
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, sectionOrders(t, db, course.ID))
}

func TestInsertAtEndGivesUpAfterRepeatedConflicts(t *testing.T) {
	db := dbtest.Open(t)
	m := ordering.NewManager(db, ordering.Sections, logger.Nop())
	course := setupCourse(t, db)

	calls := occupyNextSlot(t, db, 100)

	err := m.InsertAtEnd(context.Background(), &models.CourseSection{CourseID: course.ID, Name: "A"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, 3, *calls)
	assert.Empty(t, sectionOrders(t, db, course.ID))
}
