package readpath

import (
	"errors"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/resampler/internal/core/errors"
	"github.com/aevon-lab/resampler/internal/source"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the read and cache maintenance routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/data", s.HandleRead)
	r.POST("/v1/catalog/refresh", s.HandleRefreshCatalog)
	if s.cache != nil {
		r.DELETE("/v1/cache", s.HandleClearCache)
	}
}

// HandleRead handles GET /v1/data
// Query parameters: catalog, resource, representation, begin, end
func (s *Service) HandleRead(c *gin.Context) {
	var req ReadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Read(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRead):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "Invalid read request",
				Details:   err.Error(),
			})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Item not found",
				Details:   err.Error(),
			})
		case errors.Is(err, source.ErrUnknownSource):
			c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Backend source unavailable",
				Details:   err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to read data",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleClearCache handles DELETE /v1/cache
// Query parameters: catalog, begin, end
func (s *Service) HandleClearCache(c *gin.Context) {
	var query struct {
		CatalogID string    `form:"catalog" binding:"required"`
		Begin     time.Time `form:"begin" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		End       time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}
	if !query.Begin.Before(query.End) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "end must be after begin",
		})
		return
	}

	if err := s.cache.Clear(c.Request.Context(), query.CatalogID, query.Begin.UTC(), query.End.UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to clear cache",
			Details:   err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleRefreshCatalog handles POST /v1/catalog/refresh
// The catalog tree is reloaded from the provider on the next read.
func (s *Service) HandleRefreshCatalog(c *gin.Context) {
	s.catalogs.Invalidate(s.scope)
	c.Status(http.StatusNoContent)
}
