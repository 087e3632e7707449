package handler

import (
	"net/http"

	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/gin-gonic/gin"
)

// IntegrityHandler exposes the on-demand check and repair endpoints.
type IntegrityHandler struct {
	checker service.IntegrityChecker
	repair  service.RepairService
}

func NewIntegrityHandler(checker service.IntegrityChecker, repair service.RepairService) *IntegrityHandler {
	return &IntegrityHandler{checker: checker, repair: repair}
}

// Check handles POST /v1/integrity/check. Strictly read-only.
func (h *IntegrityHandler) Check(c *gin.Context) {
	report, err := h.checker.RunCheck(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Repair handles POST /v1/integrity/repair: check, repair, re-check.
func (h *IntegrityHandler) Repair(c *gin.Context) {
	result, err := h.repair.AutoRepair(c.Request.Context(), nil)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
