// Package notification renders in-app notifications from templates and pushes
// them to a patient's topic.
package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/websocket"
)

const (
	TemplateAppointmentReminder = "appointment-reminder"
	TemplateEmergencyStatus     = "emergency-status"
	TemplateEmergencyArrived    = "emergency-arrived"
	TemplateReportUploaded      = "report-uploaded"
)

// historyLimit bounds the notifications kept per patient.
const historyLimit = 50

type Notification struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	TemplateID string            `json:"template_id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Template struct {
	ID    string
	Type  string
	Title string
	Body  string
}

// TemplateEngine substitutes {{key}} placeholders. Unknown keys stay verbatim.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{
			ID:    TemplateAppointmentReminder,
			Type:  "appointment.reminder",
			Title: "Upcoming appointment",
			Body:  "Reminder: you see {{doctor}} ({{specialization}}) on {{date}} at {{time}}.",
		},
		{
			ID:    TemplateEmergencyStatus,
			Type:  "emergency.status",
			Title: "Ambulance {{status}}",
			Body:  "Your ambulance is {{status}}. Estimated arrival in {{eta}} minutes.",
		},
		{
			ID:    TemplateEmergencyArrived,
			Type:  "emergency.arrived",
			Title: "Ambulance arrived",
			Body:  "The ambulance has arrived at your location.",
		},
		{
			ID:    TemplateReportUploaded,
			Type:  "report.uploaded",
			Title: "Report uploaded",
			Body:  "{{file_name}} was added to your medical records.",
		},
	} {
		e.templates[t.ID] = t
	}
	return e
}

func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

func (e *TemplateEngine) Render(templateID string, data map[string]string) (Template, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return Template{}, fmt.Errorf("template %q not found", templateID)
	}
	for k, v := range data {
		ph := "{{" + k + "}}"
		t.Title = strings.ReplaceAll(t.Title, ph, v)
		t.Body = strings.ReplaceAll(t.Body, ph, v)
	}
	return t, nil
}

// Notifier publishes rendered notifications on patient/<id> and keeps a short
// per-patient history for clients that were offline.
type Notifier struct {
	templates *TemplateEngine
	publisher websocket.Publisher
	logger    zerolog.Logger

	mu      sync.Mutex
	history map[uuid.UUID][]Notification
}

func NewNotifier(templates *TemplateEngine, publisher websocket.Publisher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		templates: templates,
		publisher: publisher,
		logger:    logger.With().Str("component", "notifier").Logger(),
		history:   make(map[uuid.UUID][]Notification),
	}
}

func PatientTopic(patientID uuid.UUID) string {
	return "patient/" + patientID.String()
}

func (n *Notifier) Notify(ctx context.Context, patientID uuid.UUID, templateID string, data map[string]string) (*Notification, error) {
	t, err := n.templates.Render(templateID, data)
	if err != nil {
		return nil, err
	}
	note := Notification{
		ID:         uuid.New().String(),
		Type:       t.Type,
		TemplateID: templateID,
		Title:      t.Title,
		Body:       t.Body,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}

	n.mu.Lock()
	h := append(n.history[patientID], note)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	n.history[patientID] = h
	n.mu.Unlock()

	evt, err := websocket.NewEvent(note.Type, PatientTopic(patientID), "Notification", note.ID, note)
	if err != nil {
		return nil, err
	}
	if err := n.publisher.Publish(ctx, evt); err != nil {
		n.logger.Warn().Err(err).Str("patient_id", patientID.String()).Str("template", templateID).Msg("publish failed")
		return &note, err
	}
	return &note, nil
}

// Recent returns the patient's notifications, newest first.
func (n *Notifier) Recent(patientID uuid.UUID, limit int) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	h := n.history[patientID]
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	out := make([]Notification, 0, limit)
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out
}

type Handler struct {
	notifier *Notifier
}

func NewHandler(n *Notifier) *Handler {
	return &Handler{notifier: n}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
}

func (h *Handler) List(c echo.Context) error {
	pid := auth.PatientIDFromContext(c.Request().Context())
	if pid == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": h.notifier.Recent(pid, 20)})
}
