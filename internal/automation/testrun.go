package automation

import (
	"context"
	"fmt"
)

const (
	defaultTestName  = "Test contact"
	defaultTestEmail = "test@example.com"
	testRunSource    = "flow-test-button"
)

// TestContact is the recipient of a manual test run. Empty name and email
// get placeholder values.
type TestContact struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TestRunResult struct {
	FlowID           string `json:"flowId"`
	TriggerEventType string `json:"triggerEventType"`
	*RunResult
}

// TestFlow runs the event the flow is bound to for a test contact. The flow
// must belong to the company and be active. Other active flows with the same
// trigger run as well, exactly as they would for a real event.
func (e *Engine) TestFlow(ctx context.Context, companyID, flowID string, contact TestContact) (*TestRunResult, error) {
	flow, err := e.Flows.GetFlow(ctx, companyID, flowID)
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	if flow == nil || !flow.IsActive {
		return nil, ErrFlowNotFound
	}

	if contact.Name == "" {
		contact.Name = defaultTestName
	}
	if contact.Email == "" {
		contact.Email = defaultTestEmail
	}

	res, err := e.RunFlowsForEvent(ctx, EventInput{
		CompanyID: companyID,
		EventType: flow.TriggerEventType,
		Contact:   EventContact{Name: contact.Name, Email: contact.Email, Phone: contact.Phone},
		Payload: map[string]any{
			"source": testRunSource,
			"flowId": flow.ID,
		},
	})
	if err != nil {
		return nil, err
	}
	return &TestRunResult{FlowID: flow.ID, TriggerEventType: flow.TriggerEventType, RunResult: res}, nil
}

