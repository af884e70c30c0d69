package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	alertapp "hvac-cloud/internal/alerts/application"
	alerts "hvac-cloud/internal/alerts/domain"
)

// Clock provides time for cooldown bookkeeping.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders alert lifecycle events and sends them over a channel.
// A cooldown suppresses repeat sends for the same condition and event so
// a flapping sensor does not flood the webhook.
type Notifier struct {
	channel  Channel
	template *Template
	clock    Clock

	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
	minLevel     string
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same
// condition and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithMinLevel drops events below the given severity.
func WithMinLevel(level string) Option {
	return func(n *Notifier) {
		if level != "" {
			n.minLevel = level
		}
	}
}

// NewNotifier constructs an alert notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		clock:    systemClock{},
		sent:     make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, event alertapp.AlertEvent) {
	if n == nil || n.channel == nil {
		return
	}
	if n.minLevel != "" && !levelAtLeast(event.Alert.Level, n.minLevel) {
		return
	}
	content, err := n.template.Render(buildTemplateData(event))
	if err != nil {
		return
	}
	if !n.shouldSend(event.Alert.ID, event.Type, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return
	}
	n.markSent(event.Alert.ID, event.Type, content)
}

func buildTemplateData(event alertapp.AlertEvent) TemplateData {
	alert := event.Alert
	return TemplateData{
		Condition:  alert.ID,
		Source:     alert.Source,
		Level:      string(alert.Level),
		Message:    alert.Message,
		Value:      formatFloat(alert.Value),
		Threshold:  formatFloat(alert.Threshold),
		StartTime:  alert.StartTime.UTC().Format(time.RFC3339),
		Event:      event.Type,
		EventLabel: eventLabel(event.Type),
	}
}

func eventLabel(event string) string {
	switch event {
	case "active":
		return "Triggered"
	case "cleared":
		return "Cleared"
	default:
		return event
	}
}

func levelAtLeast(value alerts.Level, target string) bool {
	return levelRank(string(value)) >= levelRank(target)
}

func levelRank(value string) int {
	switch value {
	case string(alerts.LevelError):
		return 3
	case string(alerts.LevelWarning):
		return 2
	case string(alerts.LevelInfo):
		return 1
	default:
		return 0
	}
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *value)
}

func (n *Notifier) shouldSend(conditionID, eventType, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	key := notificationKey(conditionID, eventType)
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(conditionID, eventType, content string) {
	if n == nil {
		return
	}
	key := notificationKey(conditionID, eventType)
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(conditionID, eventType string) string {
	return conditionID + "|" + eventType
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
