package ingestion

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// Service is the order intake API: it validates submitted orders and enqueues
// them for the ingestion workers.
type Service struct {
	queue            storage.OrderQueue
	orders           storage.OrderStore
	partitions       int
	maxBodySizeBytes int
}

func NewService(queue storage.OrderQueue, orders storage.OrderStore, partitions, maxBodySizeMB int) *Service {
	if queue == nil {
		panic("ingestion: queue must not be nil")
	}
	if orders == nil {
		panic("ingestion: order store must not be nil")
	}
	if partitions <= 0 {
		partitions = 1
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		queue:            queue,
		orders:           orders,
		partitions:       partitions,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/orders", s.SubmitOrderHandler)
	r.GET("/api/orders/:id", s.GetOrderHandler)
}
