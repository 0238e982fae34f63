package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"bugalou/internal/automation"
	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type EventHandler struct {
	Store  *database.Store
	Engine *automation.Engine
}

func NewEventHandler(store *database.Store, engine *automation.Engine) *EventHandler {
	return &EventHandler{Store: store, Engine: engine}
}

// PostEvent stores an incoming event, upserts its contact and runs the flows
// bound to the event type.
func (h *EventHandler) PostEvent(c *gin.Context) {
	company := currentCompany(c)
	ctx := c.Request.Context()

	var req api.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = req.Type
	}
	if eventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type (or type) is required"})
		return
	}

	contactFields := req.Contact
	if contactFields == nil {
		contactFields = req.Data
	}
	input, err := contactInputFromFields(contactFields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = req.Data
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}

	contact, err := h.Store.UpsertContact(ctx, company.ID, input)
	if err != nil {
		zap.L().Error("api events: upsert contact", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	event := &models.Event{
		CompanyID: company.ID,
		ContactID: &contact.ID,
		Type:      eventType,
		Data:      datatypes.JSON(data),
	}
	if err := h.Store.CreateEvent(ctx, event); err != nil {
		zap.L().Error("api events: store event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	result, err := h.Engine.RunFlowsForEvent(ctx, automation.EventInput{
		CompanyID: company.ID,
		EventType: eventType,
		Contact:   automation.ContactFromModel(contact),
		Payload:   payload,
	})
	if err != nil {
		zap.L().Error("api events: flow engine failed",
			zap.String("eventId", event.ID), zap.String("eventType", eventType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	if err := h.Store.CompleteEvent(ctx, event.ID, result.TriggeredFlows, result.MessagesSent); err != nil {
		zap.L().Warn("api events: update event counters", zap.String("eventId", event.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":             true,
		"eventId":        event.ID,
		"contactId":      contact.ID,
		"triggeredFlows": result.TriggeredFlows,
		"messagesSent":   result.MessagesSent,
		"messages":       result.Messages,
	})
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	company := currentCompany(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.Store.ListEvents(c.Request.Context(), company.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// contactInputFromFields splits loose contact fields into the typed ones and
// free-form attributes.
func contactInputFromFields(fields map[string]interface{}) (database.ContactInput, error) {
	var in database.ContactInput
	phone, _ := fields["phone"].(string)
	if phone == "" {
		return in, fmt.Errorf("contact.phone (or data.phone) is required")
	}
	in.Phone = phone

	if name, ok := fields["name"].(string); ok {
		in.Name = &name
	}
	if email, ok := fields["email"].(string); ok {
		in.Email = &email
	}

	if rawTags, ok := fields["tags"].([]interface{}); ok {
		tags := make([]string, 0, len(rawTags))
		for _, t := range rawTags {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return in, err
		}
		in.Tags = datatypes.JSON(encoded)
	}

	attrs := map[string]interface{}{}
	for k, v := range fields {
		switch k {
		case "id", "phone", "name", "email", "tags":
			continue
		}
		attrs[k] = v
	}
	if len(attrs) > 0 {
		encoded, err := json.Marshal(attrs)
		if err != nil {
			return in, err
		}
		in.Attributes = datatypes.JSON(encoded)
	}
	return in, nil
}
