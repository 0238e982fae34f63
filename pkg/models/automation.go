package models

import "encoding/json"

// EventRequest is the body of POST /api/events. Older clients send
// event_type and put everything under data; newer ones send type, contact
// and payload.
type EventRequest struct {
	EventType string                 `json:"event_type"`
	Type      string                 `json:"type"`
	Contact   map[string]interface{} `json:"contact"`
	Data      map[string]interface{} `json:"data"`
	Payload   map[string]interface{} `json:"payload"`
}

// FlowRequest is the body of POST /api/flows and PATCH /api/flows/:id.
// Pointer fields are optional on PATCH.
type FlowRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	TriggerType *string         `json:"triggerType"`
	Template    *string         `json:"template"`
	IsActive    *bool           `json:"isActive"`
	Definition  json.RawMessage `json:"definition"`
}

type ToggleFlowRequest struct {
	IsActive *bool `json:"isActive"`
}

type TestFlowRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
