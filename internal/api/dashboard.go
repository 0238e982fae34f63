package api

import (
	"net/http"
	"strconv"
	"strings"

	"bugalou/internal/automation"
	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	Store      *database.Store
	Dispatcher *automation.Dispatcher
}

func NewDashboardHandler(store *database.Store, dispatcher *automation.Dispatcher) *DashboardHandler {
	return &DashboardHandler{Store: store, Dispatcher: dispatcher}
}

func (h *DashboardHandler) GetMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.Store.ListMessages(c.Request.Context(), currentCompany(c).ID, c.Query("contactId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage sends a one-off text or template through the same dispatcher the flows use,
// so the attempt is recorded like any other outbound message.
func (h *DashboardHandler) SendMessage(c *gin.Context) {
	company := currentCompany(c)
	ctx := c.Request.Context()

	var req api.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var template *automation.TemplateMessage
	if req.Template != nil {
		name := strings.TrimSpace(req.Template.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template name is required"})
			return
		}
		template = &automation.TemplateMessage{
			Name:       name,
			Language:   strings.TrimSpace(req.Template.Language),
			Parameters: req.Template.Parameters,
		}
	} else if req.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body or template is required"})
		return
	}

	contact := automation.EventContact{Phone: req.Phone}
	if req.ContactID != "" {
		stored, err := h.Store.GetContact(ctx, company.ID, req.ContactID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if stored == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		contact = automation.ContactFromModel(stored)
		if req.Phone != "" {
			contact.Phone = req.Phone
		}
	}
	if contact.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone or contactId is required"})
		return
	}

	msg, err := h.Dispatcher.Dispatch(ctx, automation.DispatchRequest{
		CompanyID: company.ID,
		ContactID: contact.ID,
		Content:   req.Body,
		Context:   automation.NewContext(contact, company, map[string]any{"source": "manual-send"}),
		Template:  template,
	})
	if err != nil {
		zap.L().Error("api messages: send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message: " + err.Error()})
		return
	}

	status := http.StatusOK
	if msg.Status == models.StatusFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"ok": msg.Status != models.StatusFailed, "message": msg})
}
