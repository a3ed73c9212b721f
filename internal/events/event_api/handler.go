package event_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"event-in/internal/errdef"
	"event-in/internal/logger"
	"event-in/internal/models"
	"event-in/internal/utils"
)

const (
	MsgCreated        = "Event berhasil dibuat"
	MsgUpdated        = "Event berhasil diperbarui"
	MsgDeleted        = "Event berhasil dihapus"
	MsgNotFound       = "Event tidak ditemukan"
	MsgMissingID      = "ID tidak ditemukan"
	MsgInvalidID      = "ID tidak valid"
	MsgMissingField   = "Ada field yang belum diisi"
	MsgInvalidFormat  = "Format tanggal atau waktu tidak valid"
	MsgInvalidBody    = "Body request tidak valid"
	MsgNotAllowed     = "Method not allowed"
	ErrPrefixCreate   = "Error membuat event"
	ErrPrefixUpdate   = "Error memperbarui event"
	ErrPrefixDelete   = "Error menghapus event"
	ErrPrefixRead     = "Error memuat event"
	maxBodyBytes      = 1 << 20
	contentTypeICS    = "text/calendar; charset=utf-8"
	contentTypePNG    = "image/png"
	calendarFileName  = "event-in.ics"
)

var (
	errMissingID = errors.New("id missing")
	errInvalidID = errors.New("id is not a positive integer")
)

type EventService interface {
	Create(ctx context.Context, in models.EventInput) (*models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Update(ctx context.Context, id int64, in models.EventInput) (*models.Event, error)
	Delete(ctx context.Context, id int64) error
}

type CalendarEncoder interface {
	Encode(w io.Writer, events []models.Event) (int, error)
}

type QREncoder interface {
	PNG(content string) ([]byte, error)
}

type Handler struct {
	EventService EventService
	Calendar     CalendarEncoder
	QR           QREncoder
	Stream       *StreamHandler
	Logger       *logger.Logger
}

func NewHandler(svc EventService, cal CalendarEncoder, qr QREncoder, stream *StreamHandler, log *logger.Logger) *Handler {
	return &Handler{
		EventService: svc,
		Calendar:     cal,
		QR:           qr,
		Stream:       stream,
		Logger:       log,
	}
}

// RegisterRoutes mounts the event endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/events", func(r chi.Router) {
		r.MethodNotAllowed(MethodNotAllowed)
		r.Get("/", h.GetEvents)
		r.Post("/", h.CreateEvent)
		r.Put("/", h.UpdateEvent)
		r.Delete("/", h.DeleteEvent)
		r.Options("/", Options)
		r.Get("/qr", h.GetMeetQR)
		if h.Stream != nil {
			r.Get("/stream", h.Stream.ServeHTTP)
		}
	})
	r.Get("/api/events.ics", h.ExportCalendar)
}

// GetEvents lists every event, or returns one when ?id= is given. An empty
// or zero id counts as no id.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw == "" || raw == "0" {
		events, err := h.EventService.List(r.Context())
		if err != nil {
			h.writeFailure(w, ErrPrefixRead, err)
			return
		}
		h.write(w, http.StatusOK, events)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.writeIDError(w, err)
		return
	}

	ev, err := h.EventService.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, ErrPrefixRead, err)
		return
	}
	h.write(w, http.StatusOK, ev)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	ev, err := h.EventService.Create(r.Context(), in)
	if err != nil {
		h.writeFailure(w, ErrPrefixCreate, err)
		return
	}
	h.write(w, http.StatusCreated, utils.CreatedResponse{Message: MsgCreated, ID: ev.ID})
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeIDError(w, err)
		return
	}

	in, err := decodeInput(w, r)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	if _, err := h.EventService.Update(r.Context(), id, in); err != nil {
		h.writeFailure(w, ErrPrefixUpdate, err)
		return
	}
	h.writeMessage(w, http.StatusOK, MsgUpdated)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeIDError(w, err)
		return
	}

	if err := h.EventService.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, ErrPrefixDelete, err)
		return
	}
	h.writeMessage(w, http.StatusOK, MsgDeleted)
}

// ExportCalendar serves the whole collection as an iCalendar feed.
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.List(r.Context())
	if err != nil {
		h.writeFailure(w, ErrPrefixRead, err)
		return
	}

	var b strings.Builder
	skipped, err := h.Calendar.Encode(&b, events)
	if err != nil {
		h.writeFailure(w, ErrPrefixRead, err)
		return
	}
	if skipped > 0 {
		h.Logger.Warn("CALENDAR", fmt.Sprintf("Skipped %d events with unreadable date or time", skipped))
	}

	w.Header().Set("Content-Type", contentTypeICS)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", calendarFileName))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, b.String())
}

// GetMeetQR returns a PNG QR code of the event's meeting link.
func (h *Handler) GetMeetQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeIDError(w, err)
		return
	}

	ev, err := h.EventService.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, ErrPrefixRead, err)
		return
	}
	if !ev.HasMeetLink() {
		h.writeMessage(w, http.StatusNotFound, MsgNotFound)
		return
	}

	png, err := h.QR.PNG(*ev.MeetLink)
	if err != nil {
		h.writeFailure(w, ErrPrefixRead, err)
		return
	}

	w.Header().Set("Content-Type", contentTypePNG)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Options answers a plain OPTIONS request; preflights are handled by the
// CORS middleware before reaching here.
func Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utils.WriteMessage(w, http.StatusMethodNotAllowed, MsgNotAllowed)
}

// parseID reads the id query parameter.
func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// decodeInput treats an empty body as an empty input so validation reports
// the missing fields.
func decodeInput(w http.ResponseWriter, r *http.Request) (models.EventInput, error) {
	var in models.EventInput
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in)
	if err != nil && !errors.Is(err, io.EOF) {
		return in, err
	}
	return in, nil
}

func (h *Handler) writeIDError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingID) {
		h.writeMessage(w, http.StatusBadRequest, MsgMissingID)
		return
	}
	h.writeMessage(w, http.StatusBadRequest, MsgInvalidID)
}

// writeFailure maps service errors onto status codes and messages.
func (h *Handler) writeFailure(w http.ResponseWriter, prefix string, err error) {
	switch {
	case errdef.IsNotFound(err):
		h.writeMessage(w, http.StatusNotFound, MsgNotFound)
	case errdef.IsBadRequest(err) && errors.Is(err, models.ErrInvalidFormat):
		h.writeMessage(w, http.StatusBadRequest, MsgInvalidFormat)
	case errdef.IsBadRequest(err):
		h.writeMessage(w, http.StatusBadRequest, MsgMissingField)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", prefix, err))
		h.writeMessage(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.write(w, status, utils.MessageResponse{Message: message})
}

func (h *Handler) write(w http.ResponseWriter, status int, v interface{}) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Failed to write response: %v", err))
	}
}
