package handler

import (
	"errors"
	"net/http"

	"github.com/tipatpati/golden-phone-management-sub010/internal/apierror"
	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncHandler lets operators trigger synchronization manually, outside the
// event-driven path. Both go through the same idempotent engine, so manual
// and automatic runs can interleave safely.
type SyncHandler struct {
	suppliers repository.SupplierRepository
	sync      service.SyncService
}

func NewSyncHandler(suppliers repository.SupplierRepository, sync service.SyncService) *SyncHandler {
	return &SyncHandler{suppliers: suppliers, sync: sync}
}

// SyncItem handles POST /v1/sync/items.
func (h *SyncHandler) SyncItem(c *gin.Context) {
	var req dto.SyncItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("item_id must be a valid uuid"))
		return
	}
	item, err := h.suppliers.FindItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("acquisition item not found"))
			return
		}
		c.Error(err)
		return
	}
	result, err := h.sync.SynchronizeItem(c.Request.Context(), item)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncTransaction handles POST /v1/sync/transactions/:id.
func (h *SyncHandler) SyncTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.sync.SynchronizeTransaction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("transaction not found"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
