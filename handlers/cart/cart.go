package cart

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// CartHandler handles the authenticated user's cart
type CartHandler struct {
	cartService *services.CartService
	validator   *validation.Validator
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validator:   validation.NewValidator(),
	}
}

// AddToCartRequest represents the request body for adding a course
type AddToCartRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	entries, err := h.cartService.List(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"items": entries,
		"count": len(entries),
		"total": services.Total(entries),
	})
}

// GetCartCount handles GET /api/v1/cart/count
func (h *CartHandler) GetCartCount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.cartService.Count(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"count": count})
}

// AddToCart handles POST /api/v1/cart
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	item, err := h.cartService.Add(c.UserContext(), userID, uuid.MustParse(req.CourseID))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, item)
}

// RemoveFromCart handles DELETE /api/v1/cart/:id
func (h *CartHandler) RemoveFromCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid cart item ID")
	}

	if err := h.cartService.Remove(c.UserContext(), userID, itemID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Item removed from cart", nil)
}

// RemoveCourseFromCart handles DELETE /api/v1/cart/courses/:course_id
func (h *CartHandler) RemoveCourseFromCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := uuid.Parse(c.Params("course_id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.cartService.RemoveCourse(c.UserContext(), userID, courseID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course removed from cart", nil)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	removed, err := h.cartService.Clear(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"removed": removed})
}
