package http

import (
	"encoding/json"
	"errors"
	"net/http"

	alerts "hvac-cloud/internal/alerts/domain"
	"hvac-cloud/internal/telemetry/application"
)

// ViewSource exposes the result of the most recent evaluation cycle.
type ViewSource interface {
	View() application.View
}

// Handler provides the alert list endpoint.
type Handler struct {
	source ViewSource
}

// NewHandler constructs a handler.
func NewHandler(source ViewSource) (*Handler, error) {
	if source == nil {
		return nil, errors.New("alerts handler: nil view source")
	}
	return &Handler{source: source}, nil
}

// ServeHTTP handles GET /api/v1/alerts. The list includes recently
// resolved alerts still within the retention window; pass ongoing=true
// to see only conditions that are currently firing.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	view := h.source.View()
	list := view.Alerts

	if r.URL.Query().Get("ongoing") == "true" {
		filtered := make([]alerts.Alert, 0, len(list))
		for _, alert := range list {
			if alert.Ongoing() {
				filtered = append(filtered, alert)
			}
		}
		list = filtered
	}
	if level := r.URL.Query().Get("level"); level != "" {
		filtered := make([]alerts.Alert, 0, len(list))
		for _, alert := range list {
			if string(alert.Level) == level {
				filtered = append(filtered, alert)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []alerts.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
