package notification

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// NotificationHandler handles notification-related API endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
	validator           *validation.Validator
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		validator:           validation.NewValidator(),
	}
}

// BroadcastRequest sends a notification to many users. Recipients who
// switched PreferenceKey off are skipped; CourseID limits the audience to
// students enrolled in that course.
type BroadcastRequest struct {
	Title         string                 `json:"title" validate:"required,max=255"`
	Message       string                 `json:"message" validate:"omitempty,max=2000"`
	Type          string                 `json:"type" validate:"required,notification_type"`
	Icon          string                 `json:"icon" validate:"omitempty,max=50"`
	Color         string                 `json:"color" validate:"omitempty,max=50"`
	RelatedID     string                 `json:"related_id" validate:"omitempty,max=64"`
	Metadata      map[string]interface{} `json:"metadata"`
	PreferenceKey string                 `json:"preference_key" validate:"omitempty,oneof=courseUpdates newCourses promotions"`
	CourseID      string                 `json:"course_id" validate:"omitempty,uuid"`
}

func (req BroadcastRequest) input() services.NotificationInput {
	return services.NotificationInput{
		Title:     req.Title,
		Message:   req.Message,
		Type:      model.NotificationType(req.Type),
		Icon:      req.Icon,
		Color:     req.Color,
		RelatedID: req.RelatedID,
		Metadata:  req.Metadata,
	}
}

// GetNotifications handles GET /api/v1/notifications
// Returns the user's notifications and the global ones
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx := c.UserContext()
	notifications, total, err := h.notificationService.List(ctx, services.ListNotificationsOptions{
		UserID:     userID,
		UnreadOnly: c.Query("unread_only") == "true",
		Type:       c.Query("type"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	unreadCount, err := h.notificationService.GetUnreadCount(ctx, userID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unread_count":  unreadCount,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"unread_count": count})
}

// MarkAsRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkAsRead(c.UserContext(), notificationID, userID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{
		"message": "All notifications marked as read",
		"count":   count,
	})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.Delete(c.UserContext(), notificationID, userID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"message": "Notification deleted"})
}

// DeleteAllNotifications handles DELETE /api/v1/notifications
func (h *NotificationHandler) DeleteAllNotifications(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.DeleteAll(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{
		"message": "All notifications deleted",
		"count":   count,
	})
}

// Broadcast handles POST /api/v1/admin/notifications/broadcast
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	var req BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var audience *uuid.UUID
	if req.CourseID != "" {
		courseID := uuid.MustParse(req.CourseID)
		audience = &courseID
	}

	job, err := h.notificationService.Broadcast(c.UserContext(), req.input(), req.PreferenceKey, audience)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(response.Response{
		Success: true,
		Message: "Broadcast queued",
		Data:    job,
	})
}

// CreateGlobal handles POST /api/v1/admin/notifications/global. A global
// notification is one row shown to every user.
func (h *NotificationHandler) CreateGlobal(c *fiber.Ctx) error {
	var req BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	notification, err := h.notificationService.CreateGlobal(c.UserContext(), req.input())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, notification)
}

// ListBroadcasts handles GET /api/v1/admin/notifications/broadcasts
func (h *NotificationHandler) ListBroadcasts(c *fiber.Ctx) error {
	page, limit, offset := response.ParsePagination(c, 20)

	jobs, total, err := h.notificationService.ListBroadcasts(c.UserContext(), limit, offset)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, jobs, response.CalculatePagination(page, limit, total))
}

// GetBroadcast handles GET /api/v1/admin/notifications/broadcasts/:id
func (h *NotificationHandler) GetBroadcast(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid broadcast ID")
	}

	job, err := h.notificationService.GetBroadcast(c.UserContext(), jobID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, job)
}
