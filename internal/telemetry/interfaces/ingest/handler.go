package ingest

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"hvac-cloud/internal/observability/metrics"
	"hvac-cloud/internal/telemetry/application"
)

// Handler accepts normalized-or-not sensor payloads over HTTP and applies
// them to the engine's zone state. Malformed payloads are rejected here
// and never reach the core.
type Handler struct {
	engine *application.Engine
	logger *log.Logger
}

// NewHandler constructs an ingest handler.
func NewHandler(engine *application.Engine, logger *log.Logger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("ingest: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{engine: engine, logger: logger}, nil
}

type ingestRequest struct {
	Device string         `json:"device"`
	TS     int64          `json:"ts"`
	Data   map[string]any `json:"data"`
}

// ServeHTTP handles POST /ingest/telemetry.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.IngestResultSuccess
	defer func() {
		metrics.ObserveIngest(result, time.Since(start))
	}()

	if r.Method != http.MethodPost {
		result = metrics.IngestResultError
		metrics.IncIngestError("method_not_allowed")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("ingest: read body error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("read_body")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("ingest: decode error: %v", err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Device == "" || len(req.Data) == 0 {
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_payload")
		http.Error(w, "missing device/data", http.StatusBadRequest)
		return
	}

	at := parseTimestamp(req.TS)
	if err := h.apply(req, at); err != nil {
		h.logger.Printf("ingest: %s: %v", req.Device, err)
		result = metrics.IngestResultError
		metrics.IncIngestError("invalid_payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"device": req.Device, "applied": true})
}

func (h *Handler) apply(req ingestRequest, at time.Time) error {
	switch {
	case h.engine.HasZone(req.Device):
		patch, err := ZonePatchFrom(req.Data)
		if err != nil {
			return err
		}
		return h.engine.ApplyZonePatch(req.Device, patch, at)
	case req.Device == "buffer":
		temp, pressure, err := BufferPatchFrom(req.Data)
		if err != nil {
			return err
		}
		h.engine.ApplyBuffer(temp, pressure, at)
		return nil
	case req.Device == "power":
		kw, err := PowerFrom(req.Data)
		if err != nil {
			return err
		}
		h.engine.ApplyPower(kw)
		return nil
	case req.Device == "weather":
		temp, err := OutdoorFrom(req.Data)
		if err != nil {
			return err
		}
		h.engine.ApplyOutdoor(temp)
		return nil
	case h.engine.HasMeter(req.Device):
		status, err := MeterStatusFrom(req.Data)
		if err != nil {
			return err
		}
		return h.engine.ApplyMeterStatus(req.Device, status, at)
	case isPumpDevice(req.Device):
		running, speed, powerW, err := PumpPatchFrom(req.Data)
		if err != nil {
			return err
		}
		return h.engine.ApplyPump(req.Device, running, speed, powerW, at)
	default:
		return errors.New("unknown device " + req.Device)
	}
}

func isPumpDevice(device string) bool {
	return len(device) >= 4 && device[:4] == "pump"
}

// parseTimestamp accepts milliseconds or seconds; zero means now.
func parseTimestamp(value int64) time.Time {
	if value <= 0 {
		return time.Now().UTC()
	}
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC()
	}
	return time.Unix(value, 0).UTC()
}
