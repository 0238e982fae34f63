package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"

	StatusSent     = "SENT"
	StatusFailed   = "FAILED"
	StatusReceived = "RECEIVED"
)

// Company is a tenant. Its display fields are exposed to templates as company.*
type Company struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug           *string   `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	APIKey         string    `gorm:"column:api_key;type:varchar(128);uniqueIndex" json:"-"`
	WhatsAppNumber *string   `gorm:"column:whatsapp_number;type:varchar(50)" json:"whatsappNumber"`
	PrimaryColor   *string   `gorm:"type:varchar(7)" json:"primaryColor"`
	AccentColor    *string   `gorm:"type:varchar(7)" json:"accentColor"`
	IntroText      *string   `gorm:"type:text" json:"introText"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CompanyWhatsAppSettings holds per-tenant WhatsApp Cloud API credentials.
type CompanyWhatsAppSettings struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyID     string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"companyId"`
	PhoneNumberID string    `gorm:"column:phone_number_id;type:varchar(64);index" json:"phoneNumberId"`
	AccessToken   string    `gorm:"type:text" json:"-"`
	WabaID        string    `gorm:"column:waba_id;type:varchar(64)" json:"wabaId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (CompanyWhatsAppSettings) TableName() string {
	return "company_whatsapp_settings"
}

func (s *CompanyWhatsAppSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Contact is unique per (company, phone).
type Contact struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyID  string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_contacts_company_phone" json:"companyId"`
	Name       *string        `gorm:"type:varchar(255)" json:"name"`
	Email      *string        `gorm:"type:varchar(255)" json:"email"`
	Phone      string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_contacts_company_phone" json:"phone"`
	Tags       datatypes.JSON `json:"tags"`       // JSON string array
	Attributes datatypes.JSON `json:"attributes"` // free-form fields such as score
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Event is an inbound business occurrence pushed through the events API.
type Event struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyID      string         `gorm:"type:varchar(36);not null;index" json:"companyId"`
	ContactID      *string        `gorm:"type:varchar(36);index" json:"contactId"`
	Type           string         `gorm:"type:varchar(100);not null;index" json:"type"`
	Data           datatypes.JSON `json:"data"`
	TriggeredFlows int            `json:"triggeredFlows"`
	MessagesSent   int            `json:"messagesSent"`
	ProcessedAt    *time.Time     `json:"processedAt"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Flow is an automation rule bound to exactly one trigger event type.
// Definition holds {"blocks": [...]}; when it is null the legacy
// MessageTemplate is sent as a single step.
type Flow struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyID        string         `gorm:"type:varchar(36);not null;index:idx_flows_company_trigger" json:"companyId"`
	Name             string         `gorm:"type:varchar(255);not null" json:"name"`
	Description      *string        `gorm:"type:text" json:"description"`
	TriggerEventType string         `gorm:"type:varchar(100);not null;index:idx_flows_company_trigger" json:"triggerEventType"`
	MessageTemplate  *string        `gorm:"type:text" json:"messageTemplate"`
	IsActive         bool           `gorm:"default:true" json:"isActive"`
	Definition       datatypes.JSON `json:"definition"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Flow) TableName() string {
	return "flows"
}

func (f *Flow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Message is the audit record of one WhatsApp message, inbound or outbound.
type Message struct {
	ID                string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CompanyID         string         `gorm:"type:varchar(36);not null;index" json:"companyId"`
	ContactID         *string        `gorm:"type:varchar(36);index" json:"contactId"`
	Direction         string         `gorm:"type:varchar(10);not null" json:"direction"`
	Status            string         `gorm:"type:varchar(20);not null" json:"status"`
	Content           string         `gorm:"type:text" json:"content"`
	WhatsAppMessageID *string        `gorm:"column:whatsapp_message_id;type:varchar(255);index" json:"whatsappMessageId"`
	RawPayload        datatypes.JSON `json:"rawPayload"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&CompanyWhatsAppSettings{},
		&Contact{},
		&Event{},
		&Flow{},
		&Message{},
	}
}
