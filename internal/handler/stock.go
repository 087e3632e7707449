package handler

import (
	"net/http"
	"strings"

	"github.com/tipatpati/golden-phone-management-sub010/internal/apierror"
	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler exposes the effective stock read model.
type StockHandler struct {
	stocks service.StockQuery
}

func NewStockHandler(stocks service.StockQuery) *StockHandler {
	return &StockHandler{stocks: stocks}
}

// Effective handles GET /v1/stock?ids=a,b,c.
func (h *StockHandler) Effective(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, apierror.New("ids query parameter is required"))
		return
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("ids must be comma-separated uuids"))
			return
		}
		ids = append(ids, id)
	}

	rows, err := h.stocks.EffectiveStockRows(c.Request.Context(), ids)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.EffectiveStockResponse{Data: rows})
}
