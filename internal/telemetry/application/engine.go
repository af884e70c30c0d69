package application

import (
	"context"
	"errors"
	"sync"
	"time"

	alertapp "hvac-cloud/internal/alerts/application"
	alerts "hvac-cloud/internal/alerts/domain"
	"hvac-cloud/internal/observability/metrics"
	telemetry "hvac-cloud/internal/telemetry/domain"
)

// Recorder persists per-tick snapshots for history and rollups.
type Recorder interface {
	InsertSnapshot(ctx context.Context, snap telemetry.Snapshot) error
}

// DailyCopProvider supplies the externally maintained daily COP value.
type DailyCopProvider interface {
	DailyCop(ctx context.Context, now time.Time) (*float64, error)
}

// View is the read-only result of one evaluation cycle, exposed to all
// consumers.
type View struct {
	telemetry.Snapshot
	Alerts []alerts.Alert `json:"alerts"`
}

// Engine owns the zone state model and drives one synchronous evaluation
// pass per tick: apply pending patches, recompute aggregates, run the
// anomaly detector, persist a history row. All core computation happens
// inside Tick with no I/O besides the optional recorder call; the mutex
// only serializes concurrent HTTP ingest against the tick.
type Engine struct {
	mu sync.Mutex

	zones     map[string]*telemetry.ZoneReading
	zoneOrder []string
	meters    map[string]*telemetry.MeterState
	meterIDs  []string
	pumps     map[string]*telemetry.PumpState
	pumpIDs   []string
	buffer    telemetry.BufferTankState

	powerKw     *float64
	outdoorTemp *float64
	dailyCop    *float64

	thresholds alerts.Thresholds
	detector   *alertapp.Detector
	recorder   Recorder
	rollup     DailyCopProvider

	view View
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithRecorder assigns a history recorder.
func WithRecorder(recorder Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithDailyCopProvider assigns the daily COP source.
func WithDailyCopProvider(provider DailyCopProvider) EngineOption {
	return func(e *Engine) {
		e.rollup = provider
	}
}

// NewEngine constructs an engine seeded with the equipment catalog.
func NewEngine(zones []telemetry.ZoneReading, meters []telemetry.MeterState, pumps []telemetry.PumpState, thresholds alerts.Thresholds, detector *alertapp.Detector, opts ...EngineOption) (*Engine, error) {
	if len(zones) == 0 {
		return nil, errors.New("engine: no zones")
	}
	if detector == nil {
		return nil, errors.New("engine: nil detector")
	}
	engine := &Engine{
		zones:      make(map[string]*telemetry.ZoneReading, len(zones)),
		meters:     make(map[string]*telemetry.MeterState, len(meters)),
		pumps:      make(map[string]*telemetry.PumpState, len(pumps)),
		thresholds: thresholds,
		detector:   detector,
	}
	for _, zone := range zones {
		if zone.ID == "" {
			return nil, errors.New("engine: zone with empty id")
		}
		if _, ok := engine.zones[zone.ID]; ok {
			return nil, errors.New("engine: duplicate zone id " + zone.ID)
		}
		z := zone
		engine.zones[z.ID] = &z
		engine.zoneOrder = append(engine.zoneOrder, z.ID)
	}
	for _, meter := range meters {
		m := meter
		engine.meters[m.ID] = &m
		engine.meterIDs = append(engine.meterIDs, m.ID)
	}
	for _, pump := range pumps {
		p := pump
		engine.pumps[p.ID] = &p
		engine.pumpIDs = append(engine.pumpIDs, p.ID)
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// HasZone reports whether the id names a configured zone.
func (e *Engine) HasZone(id string) bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.zones[id]
	return ok
}

// HasMeter reports whether the id names a configured meter.
func (e *Engine) HasMeter(id string) bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.meters[id]
	return ok
}

// ApplyZonePatch merges a canonical patch into the named zone and
// recomputes its derived values.
func (e *Engine) ApplyZonePatch(id string, patch telemetry.ZonePatch, at time.Time) error {
	if e == nil {
		return errors.New("engine: nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	zone, ok := e.zones[id]
	if !ok {
		return errors.New("engine: unknown zone " + id)
	}
	zone.Apply(patch, at)
	return nil
}

// ApplyBuffer updates buffer tank readings. Nil fields leave prior values.
func (e *Engine) ApplyBuffer(temp, pressure *float64, at time.Time) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if temp != nil {
		e.buffer.Temp = temp
	}
	if pressure != nil {
		e.buffer.Pressure = pressure
	}
	e.buffer.LastUpdate = at
}

// ApplyPower records the latest electrical draw reading.
func (e *Engine) ApplyPower(kw *float64) {
	if e == nil || kw == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.powerKw = kw
}

// ApplyOutdoor records the latest outdoor temperature.
func (e *Engine) ApplyOutdoor(temp *float64) {
	if e == nil || temp == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outdoorTemp = temp
}

// ApplyMeterStatus records a meter's reported health.
func (e *Engine) ApplyMeterStatus(id string, status telemetry.SensorStatus, at time.Time) error {
	if e == nil {
		return errors.New("engine: nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	meter, ok := e.meters[id]
	if !ok {
		return errors.New("engine: unknown meter " + id)
	}
	meter.Status = status
	meter.LastUpdate = at
	return nil
}

// ApplyPump records a circulator pump's published state.
func (e *Engine) ApplyPump(id string, running *bool, speed, powerW *float64, at time.Time) error {
	if e == nil {
		return errors.New("engine: nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pump, ok := e.pumps[id]
	if !ok {
		return errors.New("engine: unknown pump " + id)
	}
	if running != nil {
		pump.Running = *running
	}
	if speed != nil {
		pump.Speed = speed
	}
	if powerW != nil {
		pump.PowerW = powerW
	}
	pump.LastUpdate = at
	return nil
}

// Tick runs one evaluation cycle at the given instant and returns the
// resulting view. The returned error covers only the history write; the
// core computation never fails, and a failed tick never leaves partial
// state behind.
func (e *Engine) Tick(ctx context.Context, now time.Time) (View, error) {
	if e == nil {
		return View{}, errors.New("engine: nil")
	}
	start := time.Now()
	defer func() {
		metrics.ObserveTick(time.Since(start))
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rollup != nil {
		if cop, err := e.rollup.DailyCop(ctx, now); err == nil {
			e.dailyCop = cop
		}
	}

	snap := e.snapshotLocked(now)
	alertList := e.detector.Evaluate(ctx, now, snap, e.thresholds)
	e.view = View{Snapshot: snap, Alerts: alertList}
	metrics.SetSystemGauges(snap.System.TotalBtu, snap.System.LiveCop)

	if e.recorder != nil {
		if err := e.recorder.InsertSnapshot(ctx, snap); err != nil {
			metrics.IncTickFailure()
			return e.view, err
		}
	}
	return e.view, nil
}

// View returns the result of the most recent tick.
func (e *Engine) View() View {
	if e == nil {
		return View{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Thresholds returns the configured anomaly thresholds.
func (e *Engine) Thresholds() alerts.Thresholds {
	if e == nil {
		return alerts.Thresholds{}
	}
	return e.thresholds
}

// snapshotLocked copies current state into a read-only projection.
// Callers hold e.mu.
func (e *Engine) snapshotLocked(now time.Time) telemetry.Snapshot {
	zones := make([]telemetry.ZoneReading, 0, len(e.zoneOrder))
	for _, id := range e.zoneOrder {
		zones = append(zones, *e.zones[id])
	}
	meters := make([]telemetry.MeterState, 0, len(e.meterIDs))
	for _, id := range e.meterIDs {
		meters = append(meters, *e.meters[id])
	}
	pumps := make([]telemetry.PumpState, 0, len(e.pumpIDs))
	for _, id := range e.pumpIDs {
		pumps = append(pumps, *e.pumps[id])
	}

	return telemetry.Snapshot{
		At:     now,
		Zones:  zones,
		Buffer: e.buffer,
		Meters: meters,
		Pumps:  pumps,
		System: telemetry.Aggregate(zones, e.powerKw, e.outdoorTemp, e.dailyCop),
	}
}
