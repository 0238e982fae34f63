package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bugalou/internal/config"
)

// Client talks to the WhatsApp Cloud API. Credentials are passed per call
// because every company sends from its own phone number.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.WhatsAppBaseURL
	if baseURL == "" {
		baseURL = config.DefaultWhatsAppBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextObj     `json:"text,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	Parameters []ParameterObj `json:"parameters"`
}

type ParameterObj struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is returned when the Graph API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url, token string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// --- Messaging Methods ---

// SendRawMessage posts msg from the credentials' phone number and returns the
// provider message id (wamid) when the API reports one.
func (c *Client) SendRawMessage(ctx context.Context, creds Credentials, msg GenericMessage) (string, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}
	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, creds.PhoneNumberID)
	respBody, err := c.sendRequest(ctx, http.MethodPost, url, creds.AccessToken, msg)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].ID, nil
}

// SendText sends a plain text message to an E.164 number.
func (c *Client) SendText(ctx context.Context, creds Credentials, to, body string) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text: &TextObj{
			Body: body,
		},
	}
	return c.SendRawMessage(ctx, creds, msg)
}

// SendTemplateMessage sends an approved template by name.
func (c *Client) SendTemplateMessage(ctx context.Context, creds Credentials, to, templateName, languageCode string, components []ComponentObj) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &TemplateObj{
			Name: templateName,
			Language: LanguageObj{
				Code: languageCode,
			},
			Components: components,
		},
	}
	return c.SendRawMessage(ctx, creds, msg)
}
