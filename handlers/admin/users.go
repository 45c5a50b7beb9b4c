package admin

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
	"gorm.io/gorm"
)

var userSortColumns = map[string]bool{
	"created_at": true,
	"name":       true,
	"email":      true,
	"role":       true,
}

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Page    int    `query:"page"`
	Limit   int    `query:"limit"`
	Role    string `query:"role"`
	Search  string `query:"search"`
	Sort    string `query:"sort"`
	SortDir string `query:"sort_dir"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,oneof=student admin"`
}

// ResetPasswordRequest represents the request for admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func gormDB(store database.Storage) (*gorm.DB, bool) {
	db, ok := store.GetDB().(*gorm.DB)
	return db, ok
}

func loadUser(c *fiber.Ctx, db *gorm.DB) (*model.User, error) {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := db.WithContext(c.UserContext()).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "User not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch user")
	}
	return &user, nil
}

// ListUsers retrieves all users with pagination and filters
// GET /admin/users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	if !userSortColumns[req.Sort] {
		req.Sort = "created_at"
	}
	if req.SortDir != "asc" && req.SortDir != "desc" {
		req.SortDir = "desc"
	}

	query := db.WithContext(c.UserContext()).Model(&model.User{})
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order(req.Sort + " " + req.SortDir).Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(req.Page, req.Limit, total))
}

// UserStats summarises one user's activity in the marketplace
type UserStats struct {
	Enrollments         int64   `json:"enrollments"`
	CompletedCourses    int64   `json:"completed_courses"`
	Certificates        int64   `json:"certificates"`
	Reviews             int64   `json:"reviews"`
	VerifiedPayments    int64   `json:"verified_payments"`
	TotalSpent          float64 `json:"total_spent"`
	UnreadNotifications int64   `json:"unread_notifications"`
}

// GetUser retrieves a specific user by ID with their activity counts
// GET /admin/users/:id
func GetUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	user, err := loadUser(c, db)
	if user == nil {
		return err
	}

	var stats UserStats
	tx := db.WithContext(c.UserContext())
	tx.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&stats.Enrollments)
	tx.Model(&model.Enrollment{}).Where("user_id = ? AND status = ?", user.ID, model.EnrollmentStatusCompleted).
		Count(&stats.CompletedCourses)
	tx.Model(&model.Certificate{}).Where("user_id = ?", user.ID).Count(&stats.Certificates)
	tx.Model(&model.Review{}).Where("user_id = ?", user.ID).Count(&stats.Reviews)
	tx.Model(&model.Payment{}).Where("user_id = ? AND status = ?", user.ID, model.PaymentStatusVerified).
		Count(&stats.VerifiedPayments)
	tx.Model(&model.Payment{}).Where("user_id = ? AND status = ?", user.ID, model.PaymentStatusVerified).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalSpent)
	tx.Model(&model.Notification{}).Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&stats.UnreadNotifications)

	return response.SuccessWithMessage(c, "User retrieved successfully", fiber.Map{
		"user":  user,
		"stats": stats,
	})
}

// UpdateUser updates a user's information
// PUT /admin/users/:id
func UpdateUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = validation.SanitizeString(req.Name)
	if err := validation.NewValidator().ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := loadUser(c, db)
	if user == nil {
		return err
	}

	tx := db.WithContext(c.UserContext())
	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		var taken int64
		tx.Model(&model.User{}).Where("email = ? AND id <> ?", req.Email, user.ID).Count(&taken)
		if taken > 0 {
			return response.Conflict(c, "Email already in use")
		}
		updates["email"] = req.Email
	}
	if req.Role != "" && req.Role != user.Role {
		if self, _ := middleware.GetUserID(c); self == user.ID {
			return response.BadRequest(c, "Cannot change your own role")
		}
		updates["role"] = req.Role
		// A role change must not leave tokens carrying the old role
		updates["token_version"] = gorm.Expr("token_version + 1")
	}

	if len(updates) > 0 {
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update user")
		}
	}

	if err := tx.Where("id = ?", user.ID).First(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch user")
	}

	return response.SuccessWithMessage(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}

// DeleteUser soft deletes a user
// DELETE /admin/users/:id
func DeleteUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	user, err := loadUser(c, db)
	if user == nil {
		return err
	}

	if self, ok := middleware.GetUserID(c); ok && self == user.ID {
		return response.BadRequest(c, "Cannot delete your own account")
	}

	if err := db.WithContext(c.UserContext()).Delete(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	log.Infow("user deleted by admin", "user_id", user.ID, "email", user.Email)
	return response.SuccessWithMessage(c, "User deleted successfully", fiber.Map{
		"user_id": user.ID,
	})
}

// ResetUserPassword allows admin to reset a user's password
// POST /admin/users/:id/reset-password
func ResetUserPassword(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validation.NewValidator().ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := loadUser(c, db)
	if user == nil {
		return err
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to hash password")
	}

	// Bumping token_version invalidates every issued token
	if err := db.WithContext(c.UserContext()).Model(&model.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"password_hash": hashedPassword,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.SuccessWithMessage(c, "Password reset successfully", fiber.Map{
		"user_id": user.ID,
		"message": "All user sessions have been invalidated",
	})
}

// GetUserStats retrieves overall user statistics
// GET /admin/users/stats
func GetUserStats(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var stats struct {
		TotalUsers     int64 `json:"total_users"`
		AdminUsers     int64 `json:"admin_users"`
		StudentUsers   int64 `json:"student_users"`
		EnrolledUsers  int64 `json:"enrolled_users"`
		PayingUsers    int64 `json:"paying_users"`
		CertifiedUsers int64 `json:"certified_users"`
	}

	tx := db.WithContext(c.UserContext())
	tx.Model(&model.User{}).Count(&stats.TotalUsers)
	tx.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&stats.AdminUsers)
	tx.Model(&model.User{}).Where("role = ?", model.RoleStudent).Count(&stats.StudentUsers)
	tx.Model(&model.Enrollment{}).Distinct("user_id").Count(&stats.EnrolledUsers)
	tx.Model(&model.Payment{}).Where("status = ?", model.PaymentStatusVerified).
		Distinct("user_id").Count(&stats.PayingUsers)
	tx.Model(&model.Certificate{}).Distinct("user_id").Count(&stats.CertifiedUsers)

	return response.SuccessWithMessage(c, "User statistics retrieved successfully", stats)
}
