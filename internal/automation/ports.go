package automation

import (
	"context"

	"bugalou/internal/models"
	"bugalou/internal/whatsapp"
)

// FlowRepository reads flows. FindActiveFlows returns the active flows of a
// company for one trigger event type, newest first. GetFlow returns nil, nil
// when the company owns no flow with that id.
type FlowRepository interface {
	FindActiveFlows(ctx context.Context, companyID, eventType string) ([]models.Flow, error)
	GetFlow(ctx context.Context, companyID, flowID string) (*models.Flow, error)
}

// CompanyRepository returns nil, nil when the company does not exist.
type CompanyRepository interface {
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
}

type CredentialResolver interface {
	Resolve(ctx context.Context, companyID string) (whatsapp.Credentials, error)
}

// TextSender delivers a text message and returns the provider message id.
type TextSender interface {
	SendText(ctx context.Context, creds whatsapp.Credentials, to, body string) (string, error)
}

// TemplateSender delivers an approved template. Senders that implement it
// next to TextSender can be used for template dispatches.
type TemplateSender interface {
	SendTemplateMessage(ctx context.Context, creds whatsapp.Credentials, to, templateName, languageCode string, components []whatsapp.ComponentObj) (string, error)
}

// MessageNotifier is told about every message after it has been stored.
type MessageNotifier interface {
	NotifyMessage(msg models.Message)
}
