package database

import (
	"context"
	"testing"
	"time"

	"bugalou/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewStore(db)
}

func newCompany(t *testing.T, s *Store, name string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name}
	require.NoError(t, s.CreateCompany(context.Background(), c))
	return c
}

func TestCreateCompany_GeneratesAPIKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	assert.NotEmpty(t, c.ID)
	assert.Regexp(t, `^bug_[0-9a-f]{48}$`, c.APIKey)

	got, err := s.CompanyByAPIKey(ctx, c.APIKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)

	missing, err := s.CompanyByAPIKey(ctx, "bug_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rotated, err := s.RotateAPIKey(ctx, c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, c.APIKey, rotated)

	old, err := s.CompanyByAPIKey(ctx, c.APIKey)
	require.NoError(t, err)
	assert.Nil(t, old)

	_, err = s.RotateAPIKey(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newCompany(t, s, "A")
	b := newCompany(t, s, "B")

	require.NoError(t, s.SetSlug(ctx, a.ID, "bakkerij"))
	require.NoError(t, s.SetSlug(ctx, a.ID, "bakkerij"))
	assert.ErrorIs(t, s.SetSlug(ctx, b.ID, "bakkerij"), ErrSlugTaken)

	got, err := s.GetCompany(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Slug)
	assert.Equal(t, "bakkerij", *got.Slug)
}

func TestWhatsAppSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	none, err := s.FindWhatsAppSettings(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.UpsertWhatsAppSettings(ctx, &models.CompanyWhatsAppSettings{
		CompanyID: c.ID, PhoneNumberID: "111", AccessToken: "a",
	}))
	require.NoError(t, s.UpsertWhatsAppSettings(ctx, &models.CompanyWhatsAppSettings{
		CompanyID: c.ID, PhoneNumberID: "222", AccessToken: "b",
	}))

	got, err := s.FindWhatsAppSettings(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "222", got.PhoneNumberID)
	assert.Equal(t, "b", got.AccessToken)

	id, err := s.CompanyIDByPhoneNumberID(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	id, err = s.CompanyIDByPhoneNumberID(ctx, "111")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFindActiveFlows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")
	other := newCompany(t, s, "Other")

	base := time.Now().Add(-time.Hour)
	mk := func(name, company, trigger string, active bool, age time.Duration) *models.Flow {
		f := &models.Flow{
			Name: name, CompanyID: company, TriggerEventType: trigger, IsActive: active,
			CreatedAt: base.Add(age),
		}
		require.NoError(t, s.CreateFlow(ctx, f))
		return f
	}
	mk("old", c.ID, "lead_created", true, 0)
	mk("new", c.ID, "lead_created", true, time.Minute)
	mk("off", c.ID, "lead_created", false, 2*time.Minute)
	mk("order", c.ID, "order_paid", true, 3*time.Minute)
	mk("foreign", other.ID, "lead_created", true, 4*time.Minute)

	flows, err := s.FindActiveFlows(ctx, c.ID, "lead_created")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "new", flows[0].Name)
	assert.Equal(t, "old", flows[1].Name)
}

func TestUpdateFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")
	tmpl := "Hi {{name}}"
	f := &models.Flow{Name: "Welcome", CompanyID: c.ID, TriggerEventType: "lead_created", IsActive: true, MessageTemplate: &tmpl}
	require.NoError(t, s.CreateFlow(ctx, f))

	name := "Welcome v2"
	updated, err := s.UpdateFlow(ctx, c.ID, f.ID, FlowUpdate{
		Name:       &name,
		Definition: datatypes.JSON(`{"blocks":[]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome v2", updated.Name)
	assert.JSONEq(t, `{"blocks":[]}`, string(updated.Definition))
	require.NotNil(t, updated.MessageTemplate)
	assert.Equal(t, tmpl, *updated.MessageTemplate)

	toggled, err := s.SetFlowActive(ctx, c.ID, f.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	_, err = s.UpdateFlow(ctx, "other", f.ID, FlowUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteFlow(ctx, c.ID, f.ID))
	assert.ErrorIs(t, s.DeleteFlow(ctx, c.ID, f.ID), ErrNotFound)
}

func TestFlowsWithoutDefinition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	legacy := &models.Flow{Name: "legacy", CompanyID: c.ID, TriggerEventType: "x", IsActive: true}
	modern := &models.Flow{Name: "modern", CompanyID: c.ID, TriggerEventType: "x", IsActive: true, Definition: datatypes.JSON(`{"blocks":[]}`)}
	require.NoError(t, s.CreateFlow(ctx, legacy))
	require.NoError(t, s.CreateFlow(ctx, modern))

	flows, err := s.FlowsWithoutDefinition(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, legacy.ID, flows[0].ID)

	require.NoError(t, s.SetFlowDefinition(ctx, legacy.ID, datatypes.JSON(`{"blocks":[]}`)))
	flows, err = s.FlowsWithoutDefinition(ctx)
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestUpsertContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")
	ann := "Ann"

	created, err := s.UpsertContact(ctx, c.ID, ContactInput{Phone: "0612345678", Name: &ann})
	require.NoError(t, err)

	email := "ann@example.com"
	second, err := s.UpsertContact(ctx, c.ID, ContactInput{Phone: "0612345678", Email: &email})
	require.NoError(t, err)

	assert.Equal(t, created.ID, second.ID)
	require.NotNil(t, second.Name)
	assert.Equal(t, "Ann", *second.Name)
	require.NotNil(t, second.Email)
	assert.Equal(t, email, *second.Email)

	contacts, err := s.ListContacts(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestUpdateContact_DuplicatePhone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	a, err := s.UpsertContact(ctx, c.ID, ContactInput{Phone: "+31600000001"})
	require.NoError(t, err)
	_, err = s.UpsertContact(ctx, c.ID, ContactInput{Phone: "+31600000002"})
	require.NoError(t, err)

	_, err = s.UpdateContact(ctx, c.ID, a.ID, ContactInput{Phone: "+31600000002"})
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	updated, err := s.UpdateContact(ctx, c.ID, a.ID, ContactInput{Phone: "+31600000003"})
	require.NoError(t, err)
	assert.Equal(t, "+31600000003", updated.Phone)
}

func TestDeleteContact_DetachesHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	contact, err := s.UpsertContact(ctx, c.ID, ContactInput{Phone: "+31600000001"})
	require.NoError(t, err)

	msg := &models.Message{CompanyID: c.ID, ContactID: &contact.ID, Direction: models.DirectionOutbound, Status: models.StatusSent, Content: "hi"}
	require.NoError(t, s.CreateMessage(ctx, msg))
	event := &models.Event{CompanyID: c.ID, ContactID: &contact.ID, Type: "lead_created"}
	require.NoError(t, s.CreateEvent(ctx, event))

	require.NoError(t, s.DeleteContact(ctx, c.ID, contact.ID))
	assert.ErrorIs(t, s.DeleteContact(ctx, c.ID, contact.ID), ErrNotFound)

	msgs, err := s.ListMessages(ctx, c.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].ContactID)

	events, err := s.ListEvents(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].ContactID)
}

func TestFindOrCreateContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	created, err := s.FindOrCreateContact(ctx, c.ID, "31612345678", "WhatsApp contact")
	require.NoError(t, err)
	found, err := s.FindOrCreateContact(ctx, c.ID, "31612345678", "ignored")
	require.NoError(t, err)

	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "WhatsApp contact", *found.Name)
}

func TestCompleteEventAndMessageStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCompany(t, s, "Acme")

	event := &models.Event{CompanyID: c.ID, Type: "lead_created", Data: datatypes.JSON(`{"source":"web"}`)}
	require.NoError(t, s.CreateEvent(ctx, event))
	require.NoError(t, s.CompleteEvent(ctx, event.ID, 2, 1))

	events, err := s.ListEvents(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].TriggeredFlows)
	assert.Equal(t, 1, events[0].MessagesSent)
	assert.NotNil(t, events[0].ProcessedAt)

	wamid := "wamid.1"
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		CompanyID: c.ID, Direction: models.DirectionOutbound, Status: models.StatusSent, WhatsAppMessageID: &wamid,
	}))

	updated, err := s.UpdateMessageStatus(ctx, c.ID, wamid, "DELIVERED")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "DELIVERED", updated[0].Status)

	none, err := s.UpdateMessageStatus(ctx, "other", wamid, "READ")
	require.NoError(t, err)
	assert.Empty(t, none)
}
