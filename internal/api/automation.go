package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bugalou/internal/automation"
	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type AutomationHandler struct {
	Store  *database.Store
	Engine *automation.Engine
}

func NewAutomationHandler(store *database.Store, engine *automation.Engine) *AutomationHandler {
	return &AutomationHandler{Store: store, Engine: engine}
}

// GetFlows returns the company's flows, newest first.
func (h *AutomationHandler) GetFlows(c *gin.Context) {
	flows, err := h.Store.ListFlows(c.Request.Context(), currentCompany(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if flows == nil {
		flows = []models.Flow{}
	}
	c.JSON(http.StatusOK, flows)
}

func (h *AutomationHandler) GetFlow(c *gin.Context) {
	flow, err := h.Store.GetFlow(c.Request.Context(), currentCompany(c).ID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if flow == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": flow})
}

func (h *AutomationHandler) CreateFlow(c *gin.Context) {
	var req api.FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" || req.TriggerType == nil || *req.TriggerType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and triggerType are required"})
		return
	}

	definition, clear, err := validateDefinition(req.Definition)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if clear {
		definition = nil
	}

	flow := &models.Flow{
		CompanyID:        currentCompany(c).ID,
		Name:             *req.Name,
		Description:      req.Description,
		TriggerEventType: *req.TriggerType,
		MessageTemplate:  req.Template,
		IsActive:         true,
		Definition:       definition,
	}
	if req.IsActive != nil {
		flow.IsActive = *req.IsActive
	}

	if err := h.Store.CreateFlow(c.Request.Context(), flow); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flow": flow})
}

// UpdateFlow applies a partial update. A definition of null turns the flow
// back into a template-only flow.
func (h *AutomationHandler) UpdateFlow(c *gin.Context) {
	var req api.FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	definition, clear, err := validateDefinition(req.Definition)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := database.FlowUpdate{
		Name:             req.Name,
		Description:      req.Description,
		TriggerEventType: req.TriggerType,
		MessageTemplate:  req.Template,
		IsActive:         req.IsActive,
		Definition:       definition,
		ClearDefinition:  clear,
	}
	if update.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	flow, err := h.Store.UpdateFlow(c.Request.Context(), currentCompany(c).ID, c.Param("id"), update)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": flow})
}

func (h *AutomationHandler) DeleteFlow(c *gin.Context) {
	err := h.Store.DeleteFlow(c.Request.Context(), currentCompany(c).ID, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AutomationHandler) ToggleFlow(c *gin.Context) {
	var req api.ToggleFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isActive is required"})
		return
	}

	flow, err := h.Store.SetFlowActive(c.Request.Context(), currentCompany(c).ID, c.Param("id"), *req.IsActive)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": flow})
}

// TestFlow runs the flow's trigger for a test contact.
func (h *AutomationHandler) TestFlow(c *gin.Context) {
	var req api.TestFlowRequest
	_ = c.ShouldBindJSON(&req)
	if req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required for a test run"})
		return
	}

	res, err := h.Engine.TestFlow(c.Request.Context(), currentCompany(c).ID, c.Param("id"), automation.TestContact{
		Phone: req.Phone, Name: req.Name, Email: req.Email,
	})
	switch {
	case errors.Is(err, automation.ErrFlowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found or not active"})
		return
	case err != nil:
		zap.L().Error("api flows: test run failed", zap.String("flowId", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"flowId":           res.FlowID,
		"triggerEventType": res.TriggerEventType,
		"triggeredFlows":   res.TriggeredFlows,
		"messagesSent":     res.MessagesSent,
		"messages":         res.Messages,
	})
}

// validateDefinition checks that a submitted definition decodes into blocks
// with correctly typed fields.
// It reports clear=true for an explicit null.
func validateDefinition(raw json.RawMessage) (datatypes.JSON, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, true, nil
	}

	def, err := automation.ValidateDefinition(trimmed)
	if err != nil {
		return nil, false, errors.New("invalid definition: " + err.Error())
	}
	encoded, err := json.Marshal(def)
	if err != nil {
		return nil, false, err
	}
	return datatypes.JSON(encoded), false, nil
}
