package handler

import (
	"errors"
	"net/http"

	"github.com/tipatpati/golden-phone-management-sub010/internal/apierror"
	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SalesHandler exposes the sale lifecycle over HTTP.
type SalesHandler struct {
	sales service.SaleService
}

func NewSalesHandler(sales service.SaleService) *SalesHandler {
	return &SalesHandler{sales: sales}
}

// Commit handles POST /v1/sales.
func (h *SalesHandler) Commit(c *gin.Context) {
	var req dto.CommitSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sales.CommitSale(c.Request.Context(), req)
	if err != nil {
		var verrs service.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.NewProblems(verrs))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /v1/sales/:id.
func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("sale not found"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateItem handles PATCH /v1/sales/:id/items/:itemID.
func (h *SalesHandler) UpdateItem(c *gin.Context) {
	saleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemID")
	if !ok {
		return
	}
	var req dto.UpdateSaleItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sales.UpdateSaleItem(c.Request.Context(), saleID, itemID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSaleNotEditable):
			c.JSON(http.StatusConflict, apierror.New("sale is no longer editable"))
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, apierror.New("sale or item not found"))
		default:
			var verrs service.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusUnprocessableEntity, apierror.NewProblems(verrs))
				return
			}
			c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Finalize handles POST /v1/sales/:id/finalize.
func (h *SalesHandler) Finalize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sales.FinalizeSale(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSaleNotEditable):
			c.JSON(http.StatusConflict, apierror.New("sale is not open"))
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, apierror.New("sale not found"))
		default:
			c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel handles DELETE /v1/sales/:id.
func (h *SalesHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.sales.CancelSale(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("sale not found"))
			return
		}
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
