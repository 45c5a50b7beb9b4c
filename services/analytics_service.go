package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-market/model"
	"gorm.io/gorm"
)

// AnalyticsService handles analytics and reporting
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		db: db,
	}
}

// DashboardStats represents overall platform statistics
type DashboardStats struct {
	TotalUsers           int64   `json:"total_users"`
	TotalStudents        int64   `json:"total_students"`
	TotalCourses         int64   `json:"total_courses"`
	PublishedCourses     int64   `json:"published_courses"`
	TotalEnrollments     int64   `json:"total_enrollments"`
	CompletedEnrollments int64   `json:"completed_enrollments"`
	PendingPayments      int64   `json:"pending_payments"`
	VerifiedRevenue      float64 `json:"verified_revenue"`
	CertificatesIssued   int64   `json:"certificates_issued"`
	TotalReviews         int64   `json:"total_reviews"`
	NewUsersToday        int64   `json:"new_users_today"`
}

// GetDashboardStats retrieves overall platform statistics
func (s *AnalyticsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx)

	// Users
	if err := db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleStudent).
		Count(&stats.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	// Catalog
	if err := db.Model(&model.Course{}).Count(&stats.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}
	if err := db.Model(&model.Course{}).Where("status = ?", model.CourseStatusPublished).
		Count(&stats.PublishedCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count published courses: %w", err)
	}

	// Enrollments
	if err := db.Model(&model.Enrollment{}).Count(&stats.TotalEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	if err := db.Model(&model.Enrollment{}).Where("status = ?", model.EnrollmentStatusCompleted).
		Count(&stats.CompletedEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed enrollments: %w", err)
	}

	// Payments
	if err := db.Model(&model.Payment{}).Where("status = ?", model.PaymentStatusPending).
		Count(&stats.PendingPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending payments: %w", err)
	}

	var revenueResult struct {
		Total float64
	}
	if err := db.Model(&model.Payment{}).
		Where("status = ?", model.PaymentStatusVerified).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&revenueResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate revenue: %w", err)
	}
	stats.VerifiedRevenue = revenueResult.Total

	if err := db.Model(&model.Certificate{}).Count(&stats.CertificatesIssued).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}
	if err := db.Model(&model.Review{}).Count(&stats.TotalReviews).Error; err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	// New users today
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if err := db.Model(&model.User{}).
		Where("created_at >= ?", today).
		Count(&stats.NewUsersToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	return stats, nil
}

// CourseStats is one row of the top courses report
type CourseStats struct {
	CourseID      string  `json:"course_id"`
	Title         string  `json:"title"`
	TotalStudents int     `json:"total_students"`
	Rating        float64 `json:"rating"`
	Revenue       float64 `json:"revenue"`
}

// GetTopCourses returns the courses with the most students
func (s *AnalyticsService) GetTopCourses(ctx context.Context, limit int) ([]CourseStats, error) {
	if limit <= 0 {
		limit = 5
	}

	var results []CourseStats
	if err := s.db.WithContext(ctx).Model(&model.Course{}).
		Select(`courses.id as course_id, courses.title, courses.total_students, courses.rating,
			COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.course_id = courses.id AND p.status = ?), 0) as revenue`,
			model.PaymentStatusVerified).
		Order("courses.total_students DESC, courses.created_at ASC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch top courses: %w", err)
	}
	return results, nil
}

// TimeSeriesPoint represents a data point in time series
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Value float64 `json:"value,omitempty"`
}

// GetRevenueTimeSeries returns verified payments per day
func (s *AnalyticsService) GetRevenueTimeSeries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	startDate := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var results []TimeSeriesPoint
	if err := s.db.WithContext(ctx).Model(&model.Payment{}).
		Select("DATE(verified_at) as date, COUNT(*) as count, COALESCE(SUM(amount), 0) as value").
		Where("status = ? AND verified_at >= ?", model.PaymentStatusVerified, startDate).
		Group("DATE(verified_at)").
		Order("date ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch revenue series: %w", err)
	}

	return results, nil
}

// GetEnrollmentTimeSeries returns new enrollments per day
func (s *AnalyticsService) GetEnrollmentTimeSeries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	startDate := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var results []TimeSeriesPoint
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Select("DATE(enrolled_at) as date, COUNT(*) as count").
		Where("enrolled_at >= ?", startDate).
		Group("DATE(enrolled_at)").
		Order("date ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollment series: %w", err)
	}

	return results, nil
}
