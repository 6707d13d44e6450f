package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	httperr "github.com/storefront-lab/orders/internal/core/errors"
	"github.com/storefront-lab/orders/internal/core/partition"
	"github.com/storefront-lab/orders/internal/core/storage"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgEnqueueFailed    = "Failed to enqueue order"
	msgStoreUnavailable = "Order store unavailable"
	msgOrderNotFound    = "Order not found"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// SubmitOrderHandler handles POST /api/orders.
// The order is acknowledged once it is durably queued; statistics update asynchronously.
func (s *Service) SubmitOrderHandler(c *gin.Context) {
	order, payloadSize, err := s.parseOrder(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := validateOrder(order); err != nil {
		writeError(c, err)
		return
	}

	p := partition.For(order.ID.String(), s.partitions)

	slog.Info("Received Order",
		"order_id", order.ID,
		"date", order.Date(),
		"lines", len(order.Products),
		"partition", p,
		"payload_size", payloadSize)

	if err := s.enqueueOrder(c.Request.Context(), p, order); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// GetOrderHandler handles GET /api/orders/:id and reads the Order Store.
// Orders still waiting in the intake queue are not visible here.
func (s *Service) GetOrderHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidParameterError,
			message:    "Invalid order id",
			details:    err.Error(),
		})
		return
	}

	order, err := s.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(c, &ingestionError{
				statusCode: http.StatusNotFound,
				errorType:  httperr.HttpNotFoundError,
				message:    msgOrderNotFound,
			})
		case errors.Is(err, storage.ErrStoreUnavailable):
			slog.Error("Order store unavailable", "error", err, "order_id", id)
			writeError(c, &ingestionError{
				statusCode: http.StatusServiceUnavailable,
				errorType:  httperr.HttpStoreUnavailableError,
				message:    msgStoreUnavailable,
			})
		default:
			slog.Error("Failed to read order", "error", err, "order_id", id)
			writeError(c, &ingestionError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    "Failed to read order",
			})
		}
		return
	}

	c.JSON(http.StatusOK, order)
}

// parseOrder reads the raw request body and binds it into an Order.
// Returns the parsed order and the raw payload size (used for structured logging upstream).
func (s *Service) parseOrder(c *gin.Context) (*v1.Order, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLargeError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var order v1.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		}
	}

	return &order, len(bodyBytes), nil
}

func validateOrder(order *v1.Order) *ingestionError {
	if err := order.Validate(); err != nil {
		slog.Warn("Order validation failed", "error", err, "order_id", order.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	}
	return nil
}

// enqueueOrder hands the order to the intake queue of its partition.
func (s *Service) enqueueOrder(ctx context.Context, p int, order *v1.Order) *ingestionError {
	if err := s.queue.Enqueue(ctx, p, order); err != nil {
		if errors.Is(err, storage.ErrStoreUnavailable) {
			slog.Error("Intake queue unavailable", "error", err, "order_id", order.ID)
			return &ingestionError{
				statusCode: http.StatusServiceUnavailable,
				errorType:  httperr.HttpStoreUnavailableError,
				message:    msgEnqueueFailed,
			}
		}

		slog.Error("Failed to enqueue order", "error", err, "order_id", order.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgEnqueueFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
