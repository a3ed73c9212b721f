package event_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-in/internal/calendar"
	"event-in/internal/events/db"
	"event-in/internal/events/event_api"
	"event-in/internal/events/service"
	"event-in/internal/logger"
	"event-in/internal/models"
	"event-in/internal/notify"
	"event-in/internal/qr"
	"event-in/internal/sse"
	"event-in/internal/testutil"
)

type recorder struct {
	changes []notify.Change
}

func (r *recorder) Notify(_ context.Context, c notify.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func setup(t *testing.T) (http.Handler, *recorder) {
	t.Helper()
	log := logger.NewNopLogger()
	rec := &recorder{}

	store := &db.DB{Bun: testutil.NewSQLite(t)}
	svc := service.NewEventService(store, rec, log)
	h := event_api.NewHandler(
		svc,
		calendar.NewExporter(time.UTC, "Event-In", "test"),
		qr.NewGenerator(128),
		event_api.NewStreamHandler(log, sse.NewBroadcaster()),
		log,
	)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, rec
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	msg, _ := body["message"].(string)
	return msg
}

const standup = `{"nama_event":"Standup","deskripsi":"Daily sync","tanggal":"2024-06-01","waktu_mulai":"09:00","waktu_selesai":"09:30","berulang":true}`

func create(t *testing.T, h http.Handler, body string) int64 {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/events", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Message string `json:"message"`
		ID      int64  `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, event_api.MsgCreated, created.Message)
	require.NotZero(t, created.ID)
	return created.ID
}

func TestCreateAndGet(t *testing.T) {
	h, rec := setup(t)

	id := create(t, h, standup)

	rr := do(t, h, http.MethodGet, "/api/events?id="+itoa(id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var ev models.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ev))
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, "Standup", ev.Name)
	assert.Equal(t, "Daily sync", ev.Description)
	assert.Equal(t, "2024-06-01", ev.Date)
	assert.Equal(t, "09:00", ev.StartTime)
	assert.Equal(t, "09:30", ev.EndTime)
	assert.True(t, ev.Recurring)
	assert.Nil(t, ev.MeetLink)

	require.Len(t, rec.changes, 1)
	assert.Equal(t, notify.EventCreated, rec.changes[0].Type)
	assert.Equal(t, id, rec.changes[0].EventID)
}

func TestCreateAcceptsNumericFlag(t *testing.T) {
	h, _ := setup(t)

	id := create(t, h, `{"nama_event":"A","deskripsi":"B","tanggal":"2024-06-01","waktu_mulai":"09:00","waktu_selesai":"10:00","berulang":"1","link_meet":"https://meet.example.com/a"}`)

	rr := do(t, h, http.MethodGet, "/api/events?id="+itoa(id), "")
	var ev models.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ev))
	assert.True(t, ev.Recurring)
	require.NotNil(t, ev.MeetLink)
	assert.Equal(t, "https://meet.example.com/a", *ev.MeetLink)
}

func TestCreateMissingFields(t *testing.T) {
	for _, field := range []string{"nama_event", "deskripsi", "tanggal", "waktu_mulai", "waktu_selesai"} {
		t.Run(field, func(t *testing.T) {
			h, rec := setup(t)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(standup), &body))
			body[field] = ""
			raw, err := json.Marshal(body)
			require.NoError(t, err)

			rr := do(t, h, http.MethodPost, "/api/events", string(raw))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, event_api.MsgMissingField, message(t, rr))

			list := do(t, h, http.MethodGet, "/api/events", "")
			assert.JSONEq(t, `[]`, list.Body.String())
			assert.Empty(t, rec.changes)
		})
	}
}

func TestCreateBadBodies(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodPost, "/api/events", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgMissingField, message(t, rr))

	rr = do(t, h, http.MethodPost, "/api/events", `{"nama_event":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgInvalidBody, message(t, rr))

	rr = do(t, h, http.MethodPost, "/api/events", `{"nama_event":"A","deskripsi":"B","tanggal":"01/06/2024","waktu_mulai":"09:00","waktu_selesai":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgInvalidFormat, message(t, rr))
}

func TestListNewestFirst(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	first := create(t, h, standup)
	second := create(t, h, strings.Replace(standup, "Standup", "Retro", 1))

	rr = do(t, h, http.MethodGet, "/api/events", "")
	var events []models.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, second, events[0].ID)
	assert.Equal(t, first, events[1].ID)
}

func TestGetErrors(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodGet, "/api/events?id=404", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, event_api.MsgNotFound, message(t, rr))

	for _, id := range []string{"abc", "-3", "1.5"} {
		rr := do(t, h, http.MethodGet, "/api/events?id="+id, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, id)
		assert.Equal(t, event_api.MsgInvalidID, message(t, rr), id)
	}
}

func TestGetEmptyOrZeroIDLists(t *testing.T) {
	h, _ := setup(t)
	id := create(t, h, standup)

	for _, target := range []string{"/api/events?id=", "/api/events?id=0", "/api/events?id=%20"} {
		rr := do(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rr.Code, target)

		var events []models.Event
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events), target)
		require.Len(t, events, 1, target)
		assert.Equal(t, id, events[0].ID, target)
	}
}

func TestUpdate(t *testing.T) {
	h, rec := setup(t)
	id := create(t, h, standup)

	body := `{"nama_event":"Retro","deskripsi":"Sprint retro","tanggal":"2024-06-14","waktu_mulai":"15:00","waktu_selesai":"16:00","berulang":false}`
	rr := do(t, h, http.MethodPut, "/api/events?id="+itoa(id), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, event_api.MsgUpdated, message(t, rr))

	rr = do(t, h, http.MethodGet, "/api/events?id="+itoa(id), "")
	var ev models.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ev))
	assert.Equal(t, "Retro", ev.Name)
	assert.False(t, ev.Recurring)
	assert.NotNil(t, ev.UpdatedAt)

	require.Len(t, rec.changes, 2)
	assert.Equal(t, notify.EventUpdated, rec.changes[1].Type)
}

func TestUpdateErrors(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodPut, "/api/events", standup)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgMissingID, message(t, rr))

	rr = do(t, h, http.MethodPut, "/api/events?id=x", standup)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgInvalidID, message(t, rr))

	rr = do(t, h, http.MethodPut, "/api/events?id=1", `{"nama_event":"only"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgMissingField, message(t, rr))

	rr = do(t, h, http.MethodPut, "/api/events?id=999", standup)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, event_api.MsgNotFound, message(t, rr))
}

func TestDelete(t *testing.T) {
	h, rec := setup(t)
	id := create(t, h, standup)

	rr := do(t, h, http.MethodDelete, "/api/events?id="+itoa(id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, event_api.MsgDeleted, message(t, rr))

	rr = do(t, h, http.MethodGet, "/api/events?id="+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/events?id="+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/events", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, event_api.MsgMissingID, message(t, rr))

	require.Len(t, rec.changes, 2)
	assert.Equal(t, notify.EventDeleted, rec.changes[1].Type)
	assert.Nil(t, rec.changes[1].Event)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodPatch, "/api/events", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, event_api.MsgNotAllowed, message(t, rr))
}

func TestOptions(t *testing.T) {
	h, _ := setup(t)

	rr := do(t, h, http.MethodOptions, "/api/events", "")

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExportCalendar(t *testing.T) {
	h, _ := setup(t)
	create(t, h, standup)
	create(t, h, strings.Replace(standup, "Standup", "Retro", 1))

	rr := do(t, h, http.MethodGet, "/api/events.ics", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/calendar"))
	assert.Equal(t, 2, strings.Count(rr.Body.String(), "BEGIN:VEVENT"))
}

func TestMeetQR(t *testing.T) {
	h, _ := setup(t)
	withLink := create(t, h, `{"nama_event":"A","deskripsi":"B","tanggal":"2024-06-01","waktu_mulai":"09:00","waktu_selesai":"10:00","link_meet":"https://meet.example.com/a"}`)
	withoutLink := create(t, h, standup)

	rr := do(t, h, http.MethodGet, "/api/events/qr?id="+itoa(withLink), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	rr = do(t, h, http.MethodGet, "/api/events/qr?id="+itoa(withoutLink), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/events/qr?id=777", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/events/qr", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type failingService struct{}

var errStore = errors.New("database is locked")

func (failingService) Create(context.Context, models.EventInput) (*models.Event, error) {
	return nil, errStore
}
func (failingService) Get(context.Context, int64) (*models.Event, error) { return nil, errStore }
func (failingService) List(context.Context) ([]models.Event, error)      { return nil, errStore }
func (failingService) Update(context.Context, int64, models.EventInput) (*models.Event, error) {
	return nil, errStore
}
func (failingService) Delete(context.Context, int64) error { return errStore }

func TestStorageFailures(t *testing.T) {
	h := event_api.NewHandler(failingService{}, nil, nil, nil, logger.NewNopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	cases := []struct {
		method, target, body, prefix string
	}{
		{http.MethodGet, "/api/events", "", event_api.ErrPrefixRead},
		{http.MethodGet, "/api/events?id=1", "", event_api.ErrPrefixRead},
		{http.MethodPost, "/api/events", standup, event_api.ErrPrefixCreate},
		{http.MethodPut, "/api/events?id=1", standup, event_api.ErrPrefixUpdate},
		{http.MethodDelete, "/api/events?id=1", "", event_api.ErrPrefixDelete},
	}
	for _, tc := range cases {
		rr := do(t, r, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rr.Code, tc.method)
		assert.Equal(t, tc.prefix+": "+errStore.Error(), message(t, rr), tc.method)
	}
}

func TestClosedDatabaseMessages(t *testing.T) {
	bunDB := testutil.NewSQLite(t)
	svc := service.NewEventService(&db.DB{Bun: bunDB}, nil, logger.NewNopLogger())
	h := event_api.NewHandler(svc, nil, nil, nil, logger.NewNopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	require.NoError(t, bunDB.Close())

	cases := []struct {
		method, target, body, prefix string
	}{
		{http.MethodGet, "/api/events", "", event_api.ErrPrefixRead},
		{http.MethodGet, "/api/events?id=1", "", event_api.ErrPrefixRead},
		{http.MethodPost, "/api/events", standup, event_api.ErrPrefixCreate},
		{http.MethodPut, "/api/events?id=1", standup, event_api.ErrPrefixUpdate},
		{http.MethodDelete, "/api/events?id=1", "", event_api.ErrPrefixDelete},
	}
	for _, tc := range cases {
		rr := do(t, r, tc.method, tc.target, tc.body)
		require.Equal(t, http.StatusInternalServerError, rr.Code, tc.method)
		assert.Equal(t, tc.prefix+": sql: database is closed", message(t, rr), tc.method)
	}
}
