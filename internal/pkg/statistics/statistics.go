package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

const (
	CacheKeyDashboard = "statistics:dashboard"
	CacheExpiration   = 5 * time.Minute
)

// Cache is the subset of cache.Store used here.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Dashboard holds the admin overview figures. Money is in dollars.
type Dashboard struct {
	NetSales                       float64   `json:"net_sales"`
	TotalRefunds                   float64   `json:"total_refunds"`
	NetPurchases                   int64     `json:"net_purchases"`
	RefundedPurchases              int64     `json:"refunded_purchases"`
	AverageNetPurchasesPerCustomer float64   `json:"average_net_purchases_per_customer"`
	TotalStudents                  int64     `json:"total_students"`
	TotalProducts                  int64     `json:"total_products"`
	TotalCourses                   int64     `json:"total_courses"`
	TotalLessons                   int64     `json:"total_lessons"`
	GeneratedAt                    time.Time `json:"generated_at"`
}

type Service struct {
	db    *gorm.DB
	cache Cache
	log   *logger.Logger
}

// NewService creates the statistics service. cache may be nil.
func NewService(db *gorm.DB, c Cache, log *logger.Logger) *Service {
	return &Service{db: db, cache: c, log: log}
}

// GetDashboard returns the overview from cache or database
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, CacheKeyDashboard)
		if err == nil {
			var d Dashboard
			if err := json.Unmarshal([]byte(val), &d); err == nil {
				return &d, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("statistics cache read failed", "error", err)
		}
	}

	d, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		raw, _ := json.Marshal(d)
		if err := s.cache.Set(ctx, CacheKeyDashboard, string(raw), CacheExpiration); err != nil {
			s.log.Warn("statistics cache write failed", "error", err)
		}
	}
	return d, nil
}

// Invalidate drops the cached overview, e.g. after a purchase.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKeyDashboard); err != nil {
		s.log.Warn("statistics cache invalidation failed", "error", err)
	}
}

type salesRow struct {
	IsRefund       bool
	TotalSales     int64
	TotalPurchases int64
	TotalUsers     int64
}

func (s *Service) compute(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)

	var rows []salesRow
	err := db.Model(&models.Purchase{}).
		Select("refunded_at IS NOT NULL AS is_refund, COALESCE(SUM(price_paid_in_cents), 0) AS total_sales, COUNT(id) AS total_purchases, COUNT(DISTINCT user_id) AS total_users").
		Group("refunded_at IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	d := &Dashboard{GeneratedAt: time.Now().UTC()}
	for _, r := range rows {
		if r.IsRefund {
			d.TotalRefunds = float64(r.TotalSales) / 100
			d.RefundedPurchases = r.TotalPurchases
			continue
		}
		d.NetSales = float64(r.TotalSales) / 100
		d.NetPurchases = r.TotalPurchases
		if r.TotalUsers > 0 {
			d.AverageNetPurchasesPerCustomer = float64(r.TotalPurchases) / float64(r.TotalUsers)
		}
	}

	if err := db.Model(&models.UserCourseAccess{}).Distinct("user_id").Count(&d.TotalStudents).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Count(&d.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Course{}).Count(&d.TotalCourses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Lesson{}).Count(&d.TotalLessons).Error; err != nil {
		return nil, err
	}
	return d, nil
}
