package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/application"
	"github.com/rentbridge/service-booking/pkg/auth"
	"github.com/rentbridge/service-booking/pkg/middleware"
	"github.com/rentbridge/service-booking/pkg/response"
)

// StatsService produces the dashboard summary.
type StatsService interface {
	Stats(ctx context.Context) (*application.StatsDTO, error)
}

// BookingAdmin is the privileged booking surface.
type BookingAdmin interface {
	AdminDeleteBooking(ctx context.Context, bookingID uuid.UUID) error
	ReconcileProperty(ctx context.Context, propertyID uuid.UUID) (*application.PropertyDTO, error)
}

// AdminHandler handles admin HTTP requests.
type AdminHandler struct {
	stats      StatsService
	bookings   BookingService
	admin      BookingAdmin
	properties PropertyService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats StatsService, bookings BookingService, admin BookingAdmin, properties PropertyService) *AdminHandler {
	return &AdminHandler{stats: stats, bookings: bookings, admin: admin, properties: properties}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/stats", h.Stats)
		admin.GET("/bookings", h.ListBookings)
		admin.DELETE("/bookings/:id", h.DeleteBooking)
		admin.GET("/properties", h.ListProperties)
		admin.DELETE("/properties/:id", h.DeleteProperty)
		admin.POST("/properties/:id/reconcile", h.ReconcileProperty)
	}
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// DeleteBooking handles DELETE /api/v1/admin/bookings/:id.
func (h *AdminHandler) DeleteBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}
	if err := h.admin.AdminDeleteBooking(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "booking deleted")
}

// ListProperties handles GET /api/v1/admin/properties.
func (h *AdminHandler) ListProperties(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.properties.ListAllProperties(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// DeleteProperty handles DELETE /api/v1/admin/properties/:id.
func (h *AdminHandler) DeleteProperty(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	if err := h.properties.DeleteProperty(c.Request.Context(), caller, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "property deleted")
}

// ReconcileProperty handles POST /api/v1/admin/properties/:id/reconcile.
func (h *AdminHandler) ReconcileProperty(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}
	result, err := h.admin.ReconcileProperty(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
