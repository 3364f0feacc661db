package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/dbtest"
)

func TestUserUpsertKeepsRole(t *testing.T) {
	db := dbtest.Open(t)
	repos := repository.NewFactory(db).GetRepositories()

	u := &models.User{ExternalUserID: "user_1", Email: "a@example.com", Name: "A"}
	require.NoError(t, repos.User.UpsertByExternalID(u))
	require.NotEmpty(t, u.ID)
	assert.Equal(t, models.ROLE_USER, u.Role)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).Update("role", models.ROLE_ADMIN).Error)

	again := &models.User{ExternalUserID: "user_1", Email: "b@example.com", Name: "B"}
	require.NoError(t, repos.User.UpsertByExternalID(again))
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "b@example.com", again.Email)
	assert.Equal(t, models.ROLE_ADMIN, again.Role)

	count, err := repos.User.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRedact(t *testing.T) {
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)

	img := "https://img.example.com/a.png"
	u := &models.User{ExternalUserID: "user_1", Email: "a@example.com", Name: "A", ImageURL: &img}
	require.NoError(t, repos.User.UpsertByExternalID(u))
	require.NoError(t, repos.User.Redact(u.ID, time.Now()))

	_, err := repos.User.GetByExternalID("user_1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var stored models.User
	require.NoError(t, db.Unscoped().Where("id = ?", u.ID).First(&stored).Error)
	assert.Equal(t, models.RedactedEmail, stored.Email)
	assert.Equal(t, models.RedactedName, stored.Name)
	assert.Nil(t, stored.ImageURL)
	assert.True(t, stored.DeletedAt.Valid)
	assert.Equal(t, models.TombstoneExternalID(u.ID), stored.ExternalUserID)
}

func TestProgressRequiresAccessAndVisibility(t *testing.T) {
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)

	user := &models.User{ExternalUserID: "user_1", Email: "a@example.com", Name: "A"}
	require.NoError(t, repos.User.UpsertByExternalID(user))
	course := &models.Course{Name: "Go", Description: "d"}
	require.NoError(t, db.Create(course).Error)
	public := &models.CourseSection{CourseID: course.ID, Name: "public", Status: models.SectionStatusPublic, Order: 0}
	private := &models.CourseSection{CourseID: course.ID, Name: "private", Status: models.SectionStatusPrivate, Order: 1}
	require.NoError(t, db.Create(public).Error)
	require.NoError(t, db.Create(private).Error)

	visible := &models.Lesson{SectionID: public.ID, Name: "l1", YoutubeVideoID: "v", Status: models.LessonStatusPreview, Order: 0}
	hidden := &models.Lesson{SectionID: public.ID, Name: "l2", YoutubeVideoID: "v", Status: models.LessonStatusPrivate, Order: 1}
	inPrivate := &models.Lesson{SectionID: private.ID, Name: "l3", YoutubeVideoID: "v", Status: models.LessonStatusPublic, Order: 0}
	for _, l := range []*models.Lesson{visible, hidden, inPrivate} {
		require.NoError(t, db.Create(l).Error)
	}

	ok, err := repos.Progress.CanCompleteLesson(user.ID, visible.ID)
	require.NoError(t, err)
	assert.False(t, ok, "no access yet")

	require.NoError(t, db.Create(&models.UserCourseAccess{UserID: user.ID, CourseID: course.ID}).Error)

	tests := []struct {
		lesson *models.Lesson
		want   bool
	}{
		{visible, true},
		{hidden, false},
		{inPrivate, false},
	}
	for _, tt := range tests {
		ok, err := repos.Progress.CanCompleteLesson(user.ID, tt.lesson.ID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.lesson.Name)
	}

	require.NoError(t, repos.Progress.MarkComplete(user.ID, visible.ID))
	require.NoError(t, repos.Progress.MarkComplete(user.ID, visible.ID))
	ids, err := repos.Progress.CompletedLessonIDs(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{visible.ID}, ids)

	require.NoError(t, repos.Progress.UnmarkComplete(user.ID, visible.ID))
	ids, err = repos.Progress.CompletedLessonIDs(user.ID, course.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCourseWithContentIsOrdered(t *testing.T) {
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)

	course := &models.Course{Name: "Go", Description: "d"}
	require.NoError(t, db.Create(course).Error)
	second := &models.CourseSection{CourseID: course.ID, Name: "second", Order: 1}
	first := &models.CourseSection{CourseID: course.ID, Name: "first", Order: 0}
	require.NoError(t, db.Create(second).Error)
	require.NoError(t, db.Create(first).Error)

	loaded, err := repos.Course.GetCourseWithContent(course.ID)
	require.NoError(t, err)
	require.Len(t, loaded.CourseSections, 2)
	assert.Equal(t, "first", loaded.CourseSections[0].Name)
	assert.Equal(t, "second", loaded.CourseSections[1].Name)

	_, err = repos.Course.GetSection("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
