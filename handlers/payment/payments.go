package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// PaymentHandler handles payment submission and admin verification
type PaymentHandler struct {
	paymentService *services.PaymentService
	catalogService *services.CatalogService
	validator      *validation.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService, catalogService *services.CatalogService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		catalogService: catalogService,
		validator:      validation.NewValidator(),
	}
}

// CreatePaymentRequest buys a single course. Amount defaults to the
// current course price.
type CreatePaymentRequest struct {
	CourseID      string  `json:"course_id" validate:"required,uuid"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method" validate:"required,max=50"`
	InvoiceNumber string  `json:"invoice_number" validate:"omitempty,max=50"`
	ProofURL      string  `json:"proof_url" validate:"omitempty,url,max=500"`
}

// CheckoutRequest pays for everything in the cart
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
	ProofURL      string `json:"proof_url" validate:"omitempty,url,max=500"`
}

// AttachProofRequest sets the transfer proof of a payment
type AttachProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url,max=500"`
}

// RejectPaymentRequest carries the reason shown to the student
type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	courseID := uuid.MustParse(req.CourseID)
	amount := req.Amount
	if amount == 0 {
		course, err := h.catalogService.GetCourse(c.UserContext(), courseID, false)
		if err != nil {
			return response.FromError(c, err)
		}
		amount = course.Price
	}

	payment, err := h.paymentService.Create(c.UserContext(), services.CreatePaymentInput{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
		InvoiceNumber: req.InvoiceNumber,
		ProofURL:      req.ProofURL,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, payment)
}

// Checkout handles POST /api/v1/payments/checkout
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.paymentService.Checkout(c.UserContext(), userID, req.PaymentMethod, req.ProofURL)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, result)
}

// ListMyPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListMyPayments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	payments, err := h.paymentService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, payments)
}

// GetMyPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetMyPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	payment, err := h.paymentService.GetForUser(c.UserContext(), userID, paymentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, payment)
}

// AttachProof handles PUT /api/v1/payments/:id/proof
func (h *PaymentHandler) AttachProof(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	var req AttachProofRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	payment, err := h.paymentService.AttachProof(c.UserContext(), userID, paymentID, req.ProofURL)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Proof attached", payment)
}

// ListPayments handles GET /api/v1/admin/payments
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	page, limit, offset := response.ParsePagination(c, 20)

	filter := services.PaymentFilter{
		Status: model.PaymentStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return response.BadRequest(c, "Invalid user ID")
		}
		filter.UserID = &userID
	}

	payments, total, err := h.paymentService.ListAll(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}

// GetPayment handles GET /api/v1/admin/payments/:id
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	payment, err := h.paymentService.Get(c.UserContext(), paymentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, payment)
}

// VerifyPayment handles POST /api/v1/admin/payments/:id/verify
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	result, err := h.paymentService.Verify(c.UserContext(), paymentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Payment verified", result)
}

// RejectPayment handles POST /api/v1/admin/payments/:id/reject
func (h *PaymentHandler) RejectPayment(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid payment ID")
	}

	var req RejectPaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			return response.ValidationError(c, err)
		}
	}

	payment, err := h.paymentService.Reject(c.UserContext(), paymentID, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Payment rejected", payment)
}
