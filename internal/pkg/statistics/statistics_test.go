package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/dbtest"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

type mapCache struct {
	values map[string]string
	sets   int
}

func (m *mapCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.values[key] = value.(string)
	m.sets++
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestDashboard(t *testing.T) {
	db := dbtest.Open(t)
	c := &mapCache{values: map[string]string{}}
	svc := NewService(db, c, logger.Nop())
	ctx := context.Background()

	u1 := &models.User{ExternalUserID: "u1", Email: "a@example.com", Name: "A"}
	u2 := &models.User{ExternalUserID: "u2", Email: "b@example.com", Name: "B"}
	require.NoError(t, db.Create(u1).Error)
	require.NoError(t, db.Create(u2).Error)
	p := &models.Product{Name: "P", Description: "d", PriceInDollars: 10}
	require.NoError(t, db.Create(p).Error)
	course := &models.Course{Name: "C", Description: "d"}
	require.NoError(t, db.Create(course).Error)
	require.NoError(t, db.Create(&models.UserCourseAccess{UserID: u1.ID, CourseID: course.ID}).Error)

	now := time.Now()
	purchases := []*models.Purchase{
		{UserID: u1.ID, ProductID: p.ID, PaymentSessionID: "pay_1", PricePaidInCents: 1000},
		{UserID: u1.ID, ProductID: p.ID, PaymentSessionID: "pay_2", PricePaidInCents: 2000},
		{UserID: u2.ID, ProductID: p.ID, PaymentSessionID: "pay_3", PricePaidInCents: 500, RefundedAt: &now},
	}
	for _, pu := range purchases {
		require.NoError(t, db.Omit("User", "Product").Create(pu).Error)
	}

	d, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, d.NetSales)
	assert.Equal(t, 5.0, d.TotalRefunds)
	assert.Equal(t, int64(2), d.NetPurchases)
	assert.Equal(t, int64(1), d.RefundedPurchases)
	assert.Equal(t, 2.0, d.AverageNetPurchasesPerCustomer)
	assert.Equal(t, int64(1), d.TotalStudents)
	assert.Equal(t, int64(1), d.TotalProducts)
	assert.Equal(t, int64(1), d.TotalCourses)
	assert.Equal(t, 1, c.sets)

	_, err = svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets, "second read is served from cache")

	svc.Invalidate(ctx)
	_, err = svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.sets)
}

func TestDashboardWithoutCache(t *testing.T) {
	db := dbtest.Open(t)
	d, err := NewService(db, nil, logger.Nop()).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.NetSales)
	assert.Zero(t, d.AverageNetPurchasesPerCustomer)
}
