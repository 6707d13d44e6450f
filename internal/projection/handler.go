package projection

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/storefront-lab/orders/internal/core/errors"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/statistics", s.HandleAllStatistics)
	r.GET("/api/statistics/:date", s.HandleStatisticsForDate)
}

// HandleAllStatistics handles GET /api/statistics
func (s *Service) HandleAllStatistics(c *gin.Context) {
	entries, err := s.AllStatistics(c.Request.Context())
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// HandleStatisticsForDate handles GET /api/statistics/:date
func (s *Service) HandleStatisticsForDate(c *gin.Context) {
	var uri struct {
		Date string `uri:"date" binding:"required"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParameterError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	entries, err := s.StatisticsForDate(c.Request.Context(), uri.Date)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParameterError,
			Message:   "Invalid statistics query",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "No statistics for date",
		})
	case errors.Is(err, storage.ErrStoreUnavailable):
		slog.Error("Statistics cache unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpStoreUnavailableError,
			Message:   "Statistics cache unavailable",
		})
	default:
		slog.Error("Failed to query statistics", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query statistics",
			Details:   err.Error(),
		})
	}
}
