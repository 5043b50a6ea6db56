package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/application"
	"github.com/rentbridge/service-booking/pkg/auth"
	"github.com/rentbridge/service-booking/pkg/domain"
	"github.com/rentbridge/service-booking/pkg/middleware"
	"github.com/rentbridge/service-booking/pkg/response"
)

// PropertyService is the listing side of the application layer.
type PropertyService interface {
	CreateProperty(ctx context.Context, ownerID uuid.UUID, req application.PropertyRequest) (*application.PropertyDTO, error)
	GetProperty(ctx context.Context, id uuid.UUID) (*application.PropertyDTO, error)
	ListAvailableProperties(ctx context.Context, page, limit int) (domain.PaginatedResult[application.PropertyDTO], error)
	ListOwnerProperties(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.PaginatedResult[application.PropertyDTO], error)
	ListAllProperties(ctx context.Context, page, limit int) (domain.PaginatedResult[application.PropertyDTO], error)
	UpdateProperty(ctx context.Context, callerID, id uuid.UUID, req application.PropertyRequest) (*application.PropertyDTO, error)
	DeleteProperty(ctx context.Context, caller application.Caller, id uuid.UUID) error
}

// PropertyHandler serves listing routes. Browsing is public.
type PropertyHandler struct {
	service PropertyService
}

func NewPropertyHandler(service PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// RegisterRoutes registers property routes on the given router group.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	ownerOnly := middleware.RequireRole(auth.RoleOwner)

	props := r.Group("/api/v1/properties")
	{
		props.GET("", h.ListAvailable)
		props.GET("/mine", authMW, ownerOnly, h.ListMine)
		props.GET("/:id", h.Get)
		props.POST("", authMW, ownerOnly, h.Create)
		props.PUT("/:id", authMW, ownerOnly, h.Update)
		props.DELETE("/:id", authMW, middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin), h.Delete)
	}
}

// ListAvailable handles GET /api/v1/properties.
func (h *PropertyHandler) ListAvailable(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListAvailableProperties(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListMine handles GET /api/v1/properties/mine.
func (h *PropertyHandler) ListMine(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	page, limit := parsePagination(c)
	result, err := h.service.ListOwnerProperties(c.Request.Context(), ownerID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Get handles GET /api/v1/properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}
	result, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Create handles POST /api/v1/properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	var req application.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.CreateProperty(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update handles PUT /api/v1/properties/:id.
func (h *PropertyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	var req application.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.UpdateProperty(c.Request.Context(), callerID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Delete handles DELETE /api/v1/properties/:id.
func (h *PropertyHandler) Delete(c *gin.Context) {
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
	if err := h.service.DeleteProperty(c.Request.Context(), caller, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "property deleted")
}
