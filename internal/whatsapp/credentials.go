package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"bugalou/internal/config"
	"bugalou/internal/models"
)

// ErrNoCredentials means neither the company nor the environment provides a
// phone number id and access token.
var ErrNoCredentials = errors.New("no WhatsApp settings for company and no fallback configured")

type Credentials struct {
	PhoneNumberID string
	AccessToken   string
}

func (c Credentials) complete() bool {
	return c.PhoneNumberID != "" && c.AccessToken != ""
}

// SettingsLookup returns the stored settings of a company, or nil when the
// company has none.
type SettingsLookup interface {
	FindWhatsAppSettings(ctx context.Context, companyID string) (*models.CompanyWhatsAppSettings, error)
}

// CredentialStore resolves per-company credentials, falling back to the
// process-wide configuration.
type CredentialStore struct {
	Settings SettingsLookup
	Fallback Credentials
}

func NewCredentialStore(settings SettingsLookup, cfg *config.Config) *CredentialStore {
	return &CredentialStore{
		Settings: settings,
		Fallback: Credentials{
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
			AccessToken:   cfg.WhatsAppAccessToken,
		},
	}
}

func (s *CredentialStore) Resolve(ctx context.Context, companyID string) (Credentials, error) {
	if s.Settings != nil && companyID != "" {
		settings, err := s.Settings.FindWhatsAppSettings(ctx, companyID)
		if err != nil {
			return Credentials{}, fmt.Errorf("load WhatsApp settings for company %s: %w", companyID, err)
		}
		if settings != nil {
			creds := Credentials{PhoneNumberID: settings.PhoneNumberID, AccessToken: settings.AccessToken}
			if creds.complete() {
				return creds, nil
			}
		}
	}

	if !s.Fallback.complete() {
		return Credentials{}, fmt.Errorf("company %s: %w", companyID, ErrNoCredentials)
	}
	return s.Fallback, nil
}
