package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/response"
)

const (
	defaultSeriesDays = 30
	maxSeriesDays     = 365
)

func seriesDays(c *fiber.Ctx) int {
	days := c.QueryInt("days", defaultSeriesDays)
	if days < 1 || days > maxSeriesDays {
		days = defaultSeriesDays
	}
	return days
}

// GetOverviewAnalytics retrieves the dashboard counters
// GET /admin/analytics/overview
func GetOverviewAnalytics(c *fiber.Ctx, analytics *services.AnalyticsService) error {
	stats, err := analytics.GetDashboardStats(c.UserContext())
	if err != nil {
		log.Errorw("dashboard stats failed", "error", err)
		return response.InternalServerError(c, "Failed to fetch overview analytics")
	}
	return response.SuccessWithMessage(c, "Overview analytics retrieved successfully", stats)
}

// GetTopCourses lists the courses with the most students
// GET /admin/analytics/top-courses
func GetTopCourses(c *fiber.Ctx, analytics *services.AnalyticsService) error {
	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 50 {
		limit = 5
	}

	courses, err := analytics.GetTopCourses(c.UserContext(), limit)
	if err != nil {
		log.Errorw("top courses failed", "error", err)
		return response.InternalServerError(c, "Failed to fetch top courses")
	}
	return response.SuccessWithMessage(c, "Top courses retrieved successfully", courses)
}

// GetRevenueAnalytics returns verified revenue per day
// GET /admin/analytics/revenue?days=30
func GetRevenueAnalytics(c *fiber.Ctx, analytics *services.AnalyticsService) error {
	days := seriesDays(c)
	series, err := analytics.GetRevenueTimeSeries(c.UserContext(), days)
	if err != nil {
		log.Errorw("revenue series failed", "error", err)
		return response.InternalServerError(c, "Failed to fetch revenue analytics")
	}
	return response.SuccessWithMessage(c, "Revenue analytics retrieved successfully", fiber.Map{
		"days":   days,
		"series": series,
	})
}

// GetEnrollmentAnalytics returns new enrollments per day
// GET /admin/analytics/enrollments?days=30
func GetEnrollmentAnalytics(c *fiber.Ctx, analytics *services.AnalyticsService) error {
	days := seriesDays(c)
	series, err := analytics.GetEnrollmentTimeSeries(c.UserContext(), days)
	if err != nil {
		log.Errorw("enrollment series failed", "error", err)
		return response.InternalServerError(c, "Failed to fetch enrollment analytics")
	}
	return response.SuccessWithMessage(c, "Enrollment analytics retrieved successfully", fiber.Map{
		"days":   days,
		"series": series,
	})
}
