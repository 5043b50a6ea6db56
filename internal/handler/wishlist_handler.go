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

// WishlistService is the saved-properties side of the application layer.
type WishlistService interface {
	AddFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)
	RemoveFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)
	ToggleFavorite(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)
	ListWishlist(ctx context.Context, caller application.Caller, userID uuid.UUID, page, limit int) (domain.PaginatedResult[application.PropertyDTO], error)
}

// WishlistHandler serves the favorite routes. Every route needs a token.
type WishlistHandler struct {
	service WishlistService
}

func NewWishlistHandler(service WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// RegisterRoutes registers wishlist routes on the given router group.
func (h *WishlistHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	props := r.Group("/api/v1/properties")
	props.Use(middleware.AuthMiddleware(jwtManager))
	{
		props.POST("/:id/favorite", h.favorite(h.service.ToggleFavorite))
		props.PUT("/:id/favorite", h.favorite(h.service.AddFavorite))
		props.DELETE("/:id/favorite", h.favorite(h.service.RemoveFavorite))
		props.GET("/wishlist/:userId", h.List)
	}
}

type favoriteFunc func(ctx context.Context, userID, propertyID uuid.UUID) (*application.FavoriteStatusDTO, error)

func (h *WishlistHandler) favorite(fn favoriteFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid property ID")
			return
		}
		userID, ok := middleware.GetUserID(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		result, err := fn(c.Request.Context(), userID, propertyID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
	}
}

// List handles GET /api/v1/properties/wishlist/:userId.
func (h *WishlistHandler) List(c *gin.Context) {
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
	page, limit := parsePagination(c)
	result, err := h.service.ListWishlist(c.Request.Context(), caller, userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
