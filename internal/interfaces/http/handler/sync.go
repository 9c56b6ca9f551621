package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/salespipe/backend/internal/application/syncengine"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/runlock"
)

// SyncHandler exposes the ETL pipeline over HTTP. Every mutating
// endpoint runs under the shared run lock, so concurrent triggers get
// 409 instead of racing each other on the warehouse tables.
type SyncHandler struct {
	BaseHandler
	sales         *syncengine.SalesSyncService
	profitability *syncengine.ProfitabilityService
	inventory     *syncengine.InventoryService
	costs         *syncengine.CostService
	lock          runlock.RunLock
	runTimeout    time.Duration
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	sales *syncengine.SalesSyncService,
	profitability *syncengine.ProfitabilityService,
	inventory *syncengine.InventoryService,
	costs *syncengine.CostService,
	lock runlock.RunLock,
	runTimeout time.Duration,
) *SyncHandler {
	if runTimeout <= 0 {
		runTimeout = 15 * time.Minute
	}
	return &SyncHandler{
		sales:         sales,
		profitability: profitability,
		inventory:     inventory,
		costs:         costs,
		lock:          lock,
		runTimeout:    runTimeout,
	}
}

// RegisterRoutes registers the pipeline routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync", h.RunSync)
	rg.GET("/sync/profitability", h.RecomputeProfitability)
	rg.GET("/sync/inventory", h.RefreshInventory)
	rg.POST("/costs", h.UploadCosts)
}

// withRunLock acquires the run lock and invokes fn with a bounded,
// run-scoped context. Lock contention surfaces as 409 via HandleError.
func (h *SyncHandler) withRunLock(c *gin.Context, fn func(ctx context.Context) (any, error)) {
	release, err := h.lock.Acquire(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.runTimeout)
	defer cancel()
	ctx, _ = logger.WithRunID(ctx, logger.FromContext(c.Request.Context()), uuid.NewString())

	data, err := fn(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, data)
}

// RunSync triggers an incremental sales sync.
// GET /sync?days=7 or GET /sync?start=2024-06-01&end=2024-06-15&channels=shopify
func (h *SyncHandler) RunSync(c *gin.Context) {
	var req syncengine.SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.withRunLock(c, func(ctx context.Context) (any, error) {
		return h.sales.Run(ctx, req)
	})
}

// RecomputeProfitability rebuilds the profitability table.
// GET /sync/profitability
func (h *SyncHandler) RecomputeProfitability(c *gin.Context) {
	h.withRunLock(c, func(ctx context.Context) (any, error) {
		return h.profitability.Recompute(ctx)
	})
}

// RefreshInventory rewrites the inventory feed.
// GET /sync/inventory
func (h *SyncHandler) RefreshInventory(c *gin.Context) {
	h.withRunLock(c, func(ctx context.Context) (any, error) {
		return h.inventory.Refresh(ctx)
	})
}

// CostUploadRequest is the body of a cost table upload
type CostUploadRequest struct {
	Entries []syncengine.CostEntryInput `json:"entries" binding:"required"`
}

// CostUploadResponse reports how many cost rows were stored
type CostUploadResponse struct {
	Updated int `json:"updated"`
}

// UploadCosts replaces the cost table.
// POST /costs
func (h *SyncHandler) UploadCosts(c *gin.Context) {
	var req CostUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.withRunLock(c, func(ctx context.Context) (any, error) {
		updated, err := h.costs.Replace(ctx, req.Entries)
		if err != nil {
			return nil, err
		}
		return CostUploadResponse{Updated: updated}, nil
	})
}
