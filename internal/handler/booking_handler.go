package handler

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/application"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	"github.com/rentbridge/service-booking/pkg/auth"
	"github.com/rentbridge/service-booking/pkg/domain"
	"github.com/rentbridge/service-booking/pkg/middleware"
	"github.com/rentbridge/service-booking/pkg/response"
)

// BookingService is the part of the application layer the booking routes use.
type BookingService interface {
	CreateBooking(ctx context.Context, in application.CreateBookingInput) (*application.BookingDTO, error)
	ApproveBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*application.BookingDTO, error)
	RejectBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, reason string) (*application.BookingDTO, error)
	GetBooking(ctx context.Context, caller application.Caller, bookingID uuid.UUID) (*application.BookingView, error)
	ListBookingsForUser(ctx context.Context, caller application.Caller, userID uuid.UUID, roleFilter string, activeOnly bool, page, limit int) (domain.PaginatedResult[application.BookingView], error)
	ListBookingsForOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.PaginatedResult[application.BookingView], error)
	ListAllBookings(ctx context.Context, page, limit int) (domain.PaginatedResult[application.BookingView], error)
	AppendMessage(ctx context.Context, bookingID, senderID uuid.UUID, senderName, content string) (*application.BookingDTO, error)
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("/request", middleware.RequireRole(auth.RoleRenter), h.RequestBooking)
		bookings.POST("", middleware.RequireRole(auth.RoleRenter), h.CreateDirectBooking)
		bookings.GET("", middleware.RequireRole(auth.RoleAdmin), h.ListAllBookings)
		bookings.GET("/owner", middleware.RequireRole(auth.RoleOwner), h.ListOwnerBookings)
		bookings.GET("/user/:userId", h.ListUserBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/approve", h.ApproveBooking)
		bookings.PATCH("/:id/reject", h.RejectBooking)
		bookings.PATCH("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/message", h.AppendMessage)
	}
}

// RequestBooking handles POST /api/v1/bookings/request.
func (h *BookingHandler) RequestBooking(c *gin.Context) {
	h.create(c, bookingDomain.ModeRequest)
}

// CreateDirectBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateDirectBooking(c *gin.Context) {
	h.create(c, bookingDomain.ModeDirect)
}

func (h *BookingHandler) create(c *gin.Context, mode bookingDomain.CreationMode) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	name := req.UserName
	if name == "" {
		name = middleware.GetUserName(c)
	}

	result, err := h.service.CreateBooking(c.Request.Context(), application.CreateBookingInput{
		PropertyID:        req.PropertyID,
		RenterID:          userID,
		RenterName:        name,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Mode:              mode,
		OwnerNameFallback: req.OwnerName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ApproveBooking handles PATCH /api/v1/bookings/:id/approve.
func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	h.decide(c, h.service.ApproveBooking)
}

// RejectBooking handles PATCH /api/v1/bookings/:id/reject.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.decide(c, h.service.RejectBooking)
}

func (h *BookingHandler) decide(c *gin.Context, fn func(ctx context.Context, bookingID, callerID uuid.UUID) (*application.BookingDTO, error)) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := fn(c.Request.Context(), bookingID, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles PATCH /api/v1/bookings/:id/cancel. The body is optional.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var body application.CancelBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, userID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), caller, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListUserBookings handles GET /api/v1/bookings/user/:userId.
// Query: role=renter|owner, active=true|false (default true), page, limit.
func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user ID")
		return
	}

	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	activeOnly, err := strconv.ParseBool(c.DefaultQuery("active", "true"))
	if err != nil {
		response.BadRequest(c, "invalid active flag")
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListBookingsForUser(c.Request.Context(), caller, userID, c.Query("role"), activeOnly, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListOwnerBookings handles GET /api/v1/bookings/owner.
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListBookingsForOwner(c.Request.Context(), ownerID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListAllBookings handles GET /api/v1/bookings (admin).
func (h *BookingHandler) ListAllBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// AppendMessage handles POST /api/v1/bookings/:id/message.
func (h *BookingHandler) AppendMessage(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	senderID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	name := req.SenderName
	if name == "" {
		name = middleware.GetUserName(c)
	}

	result, err := h.service.AppendMessage(c.Request.Context(), bookingID, senderID, name, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

func callerFrom(c *gin.Context) (application.Caller, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		return application.Caller{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return application.Caller{ID: id, Role: role}, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
