package automation

import (
	"context"
	"errors"
	"sync"

	"bugalou/internal/models"
	"bugalou/internal/whatsapp"

	"github.com/google/uuid"
)

type memFlows struct {
	flows []models.Flow
	err   error
}

func (m *memFlows) FindActiveFlows(ctx context.Context, companyID, eventType string) ([]models.Flow, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Flow
	for _, f := range m.flows {
		if f.CompanyID == companyID && f.TriggerEventType == eventType && f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFlows) GetFlow(ctx context.Context, companyID, flowID string) (*models.Flow, error) {
	for i := range m.flows {
		if m.flows[i].ID == flowID && m.flows[i].CompanyID == companyID {
			f := m.flows[i]
			return &f, nil
		}
	}
	return nil, nil
}

type memCompanies struct {
	byID  map[string]*models.Company
	calls int
}

func (m *memCompanies) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	m.calls++
	return m.byID[companyID], nil
}

type memMessages struct {
	mu      sync.Mutex
	created []models.Message
	err     error
}

func (m *memMessages) CreateMessage(ctx context.Context, msg *models.Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	m.created = append(m.created, *msg)
	return nil
}

type staticCreds struct {
	creds whatsapp.Credentials
	err   error
}

func (s staticCreds) Resolve(ctx context.Context, companyID string) (whatsapp.Credentials, error) {
	return s.creds, s.err
}

type sentText struct {
	To   string
	Body string
}

type sentTemplate struct {
	To         string
	Name       string
	Language   string
	Components []whatsapp.ComponentObj
}

type recordingSender struct {
	sent      []sentText
	templates []sentTemplate
	fail      error
}

func (r *recordingSender) SendTemplateMessage(ctx context.Context, creds whatsapp.Credentials, to, templateName, languageCode string, components []whatsapp.ComponentObj) (string, error) {
	r.templates = append(r.templates, sentTemplate{To: to, Name: templateName, Language: languageCode, Components: components})
	if r.fail != nil {
		return "", r.fail
	}
	return "wamid." + uuid.NewString(), nil
}

func (r *recordingSender) SendText(ctx context.Context, creds whatsapp.Credentials, to, body string) (string, error) {
	r.sent = append(r.sent, sentText{To: to, Body: body})
	if r.fail != nil {
		return "", r.fail
	}
	return "wamid." + uuid.NewString(), nil
}

type recordingNotifier struct {
	got []models.Message
}

func (r *recordingNotifier) NotifyMessage(msg models.Message) {
	r.got = append(r.got, msg)
}

var errProvider = errors.New("provider unavailable")

type harness struct {
	flows     *memFlows
	companies *memCompanies
	messages  *memMessages
	sender    *recordingSender
	notifier  *recordingNotifier
	engine    *Engine
}

func newHarness(flows ...models.Flow) *harness {
	h := &harness{
		flows: &memFlows{flows: flows},
		companies: &memCompanies{byID: map[string]*models.Company{
			"c1": {ID: "c1", Name: "Bakkerij Jansen"},
		}},
		messages: &memMessages{},
		sender:   &recordingSender{},
		notifier: &recordingNotifier{},
	}
	dispatcher := NewDispatcher(staticCreds{creds: whatsapp.Credentials{PhoneNumberID: "p", AccessToken: "t"}}, h.sender, h.messages)
	dispatcher.Notifier = h.notifier
	h.engine = NewEngine(h.flows, h.companies, dispatcher)
	return h
}

func strPtr(s string) *string { return &s }
