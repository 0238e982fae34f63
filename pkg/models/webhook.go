package models

// WebhookPayload is the JSON the WhatsApp Cloud API posts to the webhook.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value *WebhookValue `json:"value"`
	Field string        `json:"field"`
}

type WebhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []InboundMessage `json:"messages,omitempty"`
	Statuses []StatusUpdate   `json:"statuses,omitempty"`
}

// InboundMessage is a message a contact sent to the business number. Only
// text messages are stored.
type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

func (m InboundMessage) Body() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// StatusUpdate reports delivery progress (sent, delivered, read, failed) of
// an outbound message.
type StatusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientId string `json:"recipient_id"`
}
