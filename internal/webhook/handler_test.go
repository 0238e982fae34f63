package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bugalou/internal/config"
	"bugalou/internal/database"
	"bugalou/internal/dedup"
	"bugalou/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDedup struct {
	seen map[string]bool
}

func (m *memDedup) IsNew(ctx context.Context, key string) (bool, error) {
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memDedup) Forget(ctx context.Context, key string) error {
	delete(m.seen, key)
	return nil
}

type recordingNotifier struct {
	created  []models.Message
	statuses []models.Message
}

func (r *recordingNotifier) NotifyMessage(msg models.Message) { r.created = append(r.created, msg) }
func (r *recordingNotifier) NotifyStatus(msg models.Message)  { r.statuses = append(r.statuses, msg) }

type fixture struct {
	store    *database.Store
	handler  *Handler
	router   *gin.Engine
	notifier *recordingNotifier
	company  *models.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := database.NewStore(db)

	ctx := context.Background()
	company := &models.Company{Name: "Acme"}
	require.NoError(t, store.CreateCompany(ctx, company))
	require.NoError(t, store.UpsertWhatsAppSettings(ctx, &models.CompanyWhatsAppSettings{
		CompanyID: company.ID, PhoneNumberID: "PNID", AccessToken: "tok",
	}))

	h := NewHandler(&config.Config{VerifyToken: "secret"}, store)
	notifier := &recordingNotifier{}
	h.Notifier = notifier
	h.Dedup = &memDedup{seen: map[string]bool{}}

	r := gin.New()
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.HandleMessage)

	return &fixture{store: store, handler: h, router: r, notifier: notifier, company: company}
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestVerifyWebhook(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{name: "valid", query: "hub.mode=subscribe&hub.verify_token=secret&hub.challenge=12345", wantCode: http.StatusOK, wantBody: "12345"},
		{name: "wrong token", query: "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", wantCode: http.StatusForbidden},
		{name: "wrong mode", query: "hub.mode=unsubscribe&hub.verify_token=secret&hub.challenge=12345", wantCode: http.StatusForbidden},
		{name: "no challenge", query: "hub.mode=subscribe&hub.verify_token=secret", wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestVerifyWebhook_NoTokenConfigured(t *testing.T) {
	f := newFixture(t)
	f.handler.Config.VerifyToken = ""

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleMessage_StatusUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wamid := "wamid.OUT1"
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{
		CompanyID: f.company.ID, Direction: models.DirectionOutbound, Status: models.StatusSent,
		Content: "Hi Ann", WhatsAppMessageID: &wamid,
	}))

	body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"metadata":{"phone_number_id":"PNID"},
		"statuses":[{"id":"wamid.OUT1","status":"delivered","timestamp":"1700000000","recipient_id":"31612345678"}]
	}}]}]}`

	w := f.post(t, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	msgs, err := f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "DELIVERED", msgs[0].Status)
	assert.Len(t, f.notifier.statuses, 1)

	f.post(t, body)
	assert.Len(t, f.notifier.statuses, 1)
}

func TestHandleMessage_InboundText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := `{"entry":[{"changes":[{"value":{
		"metadata":{"phone_number_id":"PNID"},
		"messages":[
			{"from":"31612345678","id":"wamid.IN1","timestamp":"1700000000","type":"text","text":{"body":"Hallo!"}},
			{"from":"31612345678","id":"wamid.IN2","timestamp":"1700000001","type":"image"}
		]
	}}]}]}`

	w := f.post(t, body)
	require.Equal(t, http.StatusOK, w.Code)
	f.post(t, body)

	msgs, err := f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.Equal(t, models.DirectionInbound, msg.Direction)
	assert.Equal(t, models.StatusReceived, msg.Status)
	assert.Equal(t, "Hallo!", msg.Content)
	assert.Equal(t, int64(1700000000), msg.CreatedAt.Unix())
	require.NotNil(t, msg.ContactID)

	contacts, err := f.store.ListContacts(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "31612345678", contacts[0].Phone)
	assert.Equal(t, "WhatsApp contact", *contacts[0].Name)
	assert.Len(t, f.notifier.created, 1)
}

func TestHandleMessage_UnknownNumberIgnored(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, `{"entry":[{"changes":[{"value":{
		"metadata":{"phone_number_id":"OTHER"},
		"messages":[{"from":"31600000000","id":"wamid.X","type":"text","text":{"body":"hi"}}]
	}},{"value":null}]}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	msgs, err := f.store.ListMessages(context.Background(), f.company.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, `{"entry":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, int64(1700000000), parseTimestamp("1700000000").Unix())
	assert.WithinDuration(t, parseTimestamp(""), parseTimestamp("garbage"), timeTolerance)
}

const timeTolerance = time.Second

func TestHandleMessage_StorageFailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB

	body := `{"entry":[{"changes":[{"value":{
		"metadata":{"phone_number_id":"PNID"},
		"messages":[{"from":"31612345678","id":"wamid.RETRY","timestamp":"1700000000","type":"text","text":{"body":"Hallo"}}]
	}}]}]}`

	require.NoError(t, db.Migrator().DropTable(&models.Message{}))
	w := f.post(t, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.NoError(t, database.Migrate(db))
	w = f.post(t, body)
	require.Equal(t, http.StatusOK, w.Code)

	msgs, err := f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hallo", msgs[0].Content)

	f.post(t, body)
	msgs, err = f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestHandleMessage_StatusStorageFailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB

	body := `{"entry":[{"changes":[{"value":{
		"metadata":{"phone_number_id":"PNID"},
		"statuses":[{"id":"wamid.OUT2","status":"read","timestamp":"1700000000"}]
	}}]}]}`

	require.NoError(t, db.Migrator().DropTable(&models.Message{}))
	w := f.post(t, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.NoError(t, database.Migrate(db))
	wamid := "wamid.OUT2"
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{
		CompanyID: f.company.ID, Direction: models.DirectionOutbound, Status: models.StatusSent,
		Content: "Hi", WhatsAppMessageID: &wamid,
	}))

	w = f.post(t, body)
	require.Equal(t, http.StatusOK, w.Code)
	msgs, err := f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "READ", msgs[0].Status)
}

func TestHandleMessage_RedisDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB

	mr := miniredis.RunT(t)
	filter, err := dedup.Connect(ctx, "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })
	f.handler.Dedup = filter

	body := `{"entry":[{"changes":[{"value":{
		"metadata":{"phone_number_id":"PNID"},
		"messages":[{"from":"31612345678","id":"wamid.REDIS","timestamp":"1700000000","type":"text","text":{"body":"Hallo"}}]
	}}]}]}`

	require.NoError(t, db.Migrator().DropTable(&models.Message{}))
	w := f.post(t, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, mr.Keys())

	require.NoError(t, database.Migrate(db))
	for i := 0; i < 2; i++ {
		w = f.post(t, body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	msgs, err := f.store.ListMessages(ctx, f.company.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Len(t, mr.Keys(), 1)
}
