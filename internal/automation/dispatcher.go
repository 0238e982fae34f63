package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bugalou/internal/models"
	"bugalou/internal/whatsapp"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const DefaultTemplateLanguage = "nl"

var (
	ErrMissingCompanyID     = errors.New("missing company id")
	ErrTemplatesUnsupported = errors.New("sender cannot send templates")
)

// Dispatcher sends one outbound message and records exactly one Message for
// the attempt, whether the provider accepted it or not.
type Dispatcher struct {
	Credentials CredentialResolver
	Sender      TextSender
	Messages    MessageRepository
	Notifier    MessageNotifier
}

func NewDispatcher(creds CredentialResolver, sender TextSender, messages MessageRepository) *Dispatcher {
	return &Dispatcher{Credentials: creds, Sender: sender, Messages: messages}
}

type DispatchRequest struct {
	CompanyID string
	ContactID string
	Content   string
	Context   Context
	// Template, when set, is sent instead of Content as a text message.
	Template *TemplateMessage
}

// TemplateMessage names an approved template. Parameters fill the body
// placeholders in order and are rendered against the dispatch context.
type TemplateMessage struct {
	Name       string   `json:"name"`
	Language   string   `json:"language"`
	Parameters []string `json:"parameters,omitempty"`
}

type dispatchAudit struct {
	Simulated bool             `json:"simulated"`
	Context   map[string]any   `json:"context"`
	Template  *TemplateMessage `json:"template,omitempty"`
	Error     *string          `json:"error"`
}

// Dispatch normalizes the contact phone from the context, sends the content
// and stores the outcome. Provider failures end up in a FAILED message;
// only a missing company id, credential resolution and storage fail the call.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*models.Message, error) {
	if req.CompanyID == "" {
		zap.L().Error("sendWhatsAppMessage: missing company id")
		return nil, ErrMissingCompanyID
	}

	rawPhone, _ := req.Context.Lookup("contact.phone")
	phoneText, _ := rawPhone.(string)
	to, ok := NormalizeDutchPhone(phoneText)

	var (
		sent    bool
		wamid   string
		sendErr error
	)
	if !ok {
		zap.L().Warn("sendWhatsAppMessage: invalid or missing phone number for contact",
			zap.Any("phone", rawPhone))
		sendErr = fmt.Errorf("invalid or missing phone number %q", phoneText)
	} else {
		creds, err := d.Credentials.Resolve(ctx, req.CompanyID)
		if err != nil {
			return nil, err
		}
		wamid, sendErr = d.send(ctx, creds, to, req)
		if sendErr != nil {
			zap.L().Error("sendWhatsAppMessage: provider call failed",
				zap.String("companyId", req.CompanyID), zap.String("to", to), zap.Error(sendErr))
		} else {
			sent = true
		}
	}

	audit := dispatchAudit{Context: req.Context.Snapshot(), Template: req.Template}
	if sendErr != nil {
		text := sendErr.Error()
		audit.Error = &text
	}
	payload, err := json.Marshal(audit)
	if err != nil {
		return nil, fmt.Errorf("encode message payload: %w", err)
	}

	msg := &models.Message{
		CompanyID:  req.CompanyID,
		Direction:  models.DirectionOutbound,
		Status:     models.StatusFailed,
		Content:    recordedContent(req),
		RawPayload: datatypes.JSON(payload),
	}
	if sent {
		msg.Status = models.StatusSent
	}
	if wamid != "" {
		msg.WhatsAppMessageID = &wamid
	}
	if req.ContactID != "" {
		msg.ContactID = &req.ContactID
	} else {
		zap.L().Warn("sendWhatsAppMessage: no contact id, storing message without contact",
			zap.String("companyId", req.CompanyID))
	}

	if err := d.Messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	if d.Notifier != nil {
		d.Notifier.NotifyMessage(*msg)
	}
	return msg, nil
}

func (d *Dispatcher) send(ctx context.Context, creds whatsapp.Credentials, to string, req DispatchRequest) (string, error) {
	if req.Template == nil {
		return d.Sender.SendText(ctx, creds, to, req.Content)
	}
	templates, ok := d.Sender.(TemplateSender)
	if !ok {
		return "", ErrTemplatesUnsupported
	}
	language := req.Template.Language
	if language == "" {
		language = DefaultTemplateLanguage
	}
	var components []whatsapp.ComponentObj
	if len(req.Template.Parameters) > 0 {
		params := make([]whatsapp.ParameterObj, 0, len(req.Template.Parameters))
		for _, p := range req.Template.Parameters {
			params = append(params, whatsapp.ParameterObj{Type: "text", Text: RenderTemplate(p, req.Context)})
		}
		components = []whatsapp.ComponentObj{{Type: "body", Parameters: params}}
	}
	return templates.SendTemplateMessage(ctx, creds, to, req.Template.Name, language, components)
}

func recordedContent(req DispatchRequest) string {
	if req.Template != nil && req.Content == "" {
		return "template:" + req.Template.Name
	}
	return req.Content
}
