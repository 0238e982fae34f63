package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bugalou/internal/config"
	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const inboundContactName = "WhatsApp contact"

// Deduper reports whether a delivery key is seen for the first time.
// Forget releases a key whose delivery could not be stored, so the
// provider's retry is processed.
type Deduper interface {
	IsNew(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Notifier receives stored inbound messages and status changes.
type Notifier interface {
	NotifyMessage(msg models.Message)
	NotifyStatus(msg models.Message)
}

type Handler struct {
	Config   *config.Config
	Store    *database.Store
	Dedup    Deduper
	Notifier Notifier
}

func NewHandler(cfg *config.Config, store *database.Store) *Handler {
	return &Handler{
		Config: cfg,
		Store:  store,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if h.Config.VerifyToken == "" {
		zap.L().Error("webhook: WHATSAPP_VERIFY_TOKEN is not configured")
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	if mode == "subscribe" && token == h.Config.VerifyToken && challenge != "" {
		zap.L().Info("webhook: verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "Forbidden")
}

func (h *Handler) HandleMessage(c *gin.Context) {
	var payload api.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		zap.L().Warn("webhook: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Value == nil {
				continue
			}
			if err := h.handleChange(ctx, change.Value); err != nil {
				zap.L().Error("webhook: processing failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) handleChange(ctx context.Context, value *api.WebhookValue) error {
	phoneNumberID := value.Metadata.PhoneNumberID
	if phoneNumberID == "" {
		zap.L().Warn("webhook: change without metadata.phone_number_id skipped")
		return nil
	}

	companyID, err := h.Store.CompanyIDByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return err
	}
	if companyID == "" {
		zap.L().Warn("webhook: no company for phone number id", zap.String("phoneNumberId", phoneNumberID))
		return nil
	}

	for _, status := range value.Statuses {
		if status.ID == "" || status.Status == "" {
			continue
		}
		key := "status:" + status.ID + ":" + status.Status
		if !h.firstDelivery(ctx, key) {
			continue
		}
		updated, err := h.Store.UpdateMessageStatus(ctx, companyID, status.ID, strings.ToUpper(status.Status))
		if err != nil {
			h.forget(ctx, key)
			return err
		}
		if h.Notifier != nil {
			for _, msg := range updated {
				h.Notifier.NotifyStatus(msg)
			}
		}
	}

	for _, inbound := range value.Messages {
		text := inbound.Body()
		if inbound.From == "" || inbound.ID == "" || text == "" {
			continue
		}
		key := "message:" + inbound.ID
		if !h.firstDelivery(ctx, key) {
			continue
		}
		if err := h.storeInbound(ctx, companyID, inbound, text); err != nil {
			h.forget(ctx, key)
			return err
		}
	}
	return nil
}

func (h *Handler) storeInbound(ctx context.Context, companyID string, inbound api.InboundMessage, text string) error {
	contact, err := h.Store.FindOrCreateContact(ctx, companyID, inbound.From, inboundContactName)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(inbound)
	if err != nil {
		return err
	}

	wamid := inbound.ID
	msg := &models.Message{
		CompanyID:         companyID,
		ContactID:         &contact.ID,
		Direction:         models.DirectionInbound,
		Status:            models.StatusReceived,
		Content:           text,
		WhatsAppMessageID: &wamid,
		RawPayload:        datatypes.JSON(raw),
		CreatedAt:         parseTimestamp(inbound.Timestamp),
	}
	if err := h.Store.CreateMessage(ctx, msg); err != nil {
		return err
	}

	if h.Notifier != nil {
		h.Notifier.NotifyMessage(*msg)
	}
	return nil
}

// firstDelivery consults the dedup filter. Without a filter, or when it
// fails, the delivery is processed.
func (h *Handler) firstDelivery(ctx context.Context, key string) bool {
	if h.Dedup == nil {
		return true
	}
	isNew, err := h.Dedup.IsNew(ctx, key)
	if err != nil {
		zap.L().Warn("webhook: dedup check failed", zap.String("key", key), zap.Error(err))
		return true
	}
	if !isNew {
		zap.L().Debug("webhook: duplicate delivery skipped", zap.String("key", key))
	}
	return isNew
}

func (h *Handler) forget(ctx context.Context, key string) {
	if h.Dedup == nil {
		return
	}
	if err := h.Dedup.Forget(ctx, key); err != nil {
		zap.L().Error("webhook: could not release dedup key, retry will be skipped",
			zap.String("key", key), zap.Error(err))
	}
}

// parseTimestamp reads WhatsApp's unix seconds, falling back to now.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Now()
	}
	secs, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(0, int64(secs*float64(time.Second)))
}
