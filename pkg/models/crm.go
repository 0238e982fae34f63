package models

import "encoding/json"

// ContactRequest is the body of POST /api/contacts and PATCH /api/contacts/:id.
type ContactRequest struct {
	Phone      string          `json:"phone"`
	Name       *string         `json:"name"`
	Email      *string         `json:"email"`
	Tags       []string        `json:"tags"`
	Attributes json.RawMessage `json:"attributes"`
}

// SendMessageRequest sends either a free text Body or an approved Template.
type SendMessageRequest struct {
	Phone     string           `json:"phone"`
	Body      string           `json:"body"`
	ContactID string           `json:"contactId"`
	Template  *TemplateRequest `json:"template"`
}

type TemplateRequest struct {
	Name       string   `json:"name"`
	Language   string   `json:"language"`
	Parameters []string `json:"parameters"`
}

type SlugRequest struct {
	Slug string `json:"slug"`
}

type BrandingRequest struct {
	PrimaryColor *string `json:"primaryColor"`
	AccentColor  *string `json:"accentColor"`
	IntroText    *string `json:"introText"`
}

type WhatsAppSettingsRequest struct {
	PhoneNumberID string `json:"phoneNumberId"`
	AccessToken   string `json:"accessToken"`
	WabaID        string `json:"wabaId"`
}
