package signal

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfold/polypilot/internal/domain"
)

// FeedConfig holds construction parameters for the sentiment feed source.
type FeedConfig struct {
	URL              string
	ReconnectBackoff time.Duration
	// MaxAge drops items older than this when answering SignalFor.
	MaxAge time.Duration
}

// FeedSource consumes a websocket stream of sentiment messages and serves
// the most recent items whose topic keywords appear in a market question.
// The connection is maintained by Run; SignalFor only reads the in-memory
// state, so a dead feed degrades to empty bundles rather than errors.
type FeedSource struct {
	cfg    FeedConfig
	logger *slog.Logger

	mu    sync.RWMutex
	items map[string]domain.SignalItem // keyed by lowercase topic
}

// feedMessage is the wire shape of one sentiment update.
type feedMessage struct {
	Topic      string  `json:"topic"`
	Source     string  `json:"source"`
	Direction  string  `json:"direction"` // "bullish" | "bearish" | "neutral"
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// NewFeedSource creates a FeedSource. Call Run in a goroutine to start
// consuming the stream.
func NewFeedSource(cfg FeedConfig, logger *slog.Logger) *FeedSource {
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Minute
	}
	return &FeedSource{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "signal_feed")),
		items:  make(map[string]domain.SignalItem),
	}
}

// Run maintains the websocket connection until ctx is cancelled, reconnecting
// after the configured backoff on any disconnect.
func (f *FeedSource) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("sentiment feed disconnected", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.ReconnectBackoff):
			f.logger.Info("sentiment feed reconnecting")
		}
	}
}

func (f *FeedSource) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.logger.Info("sentiment feed connected", slog.String("url", f.cfg.URL))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var m feedMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}
		f.record(m)
	}
}

// record stores one feed message, normalizing the topic and clamping
// confidence into [0,1].
func (f *FeedSource) record(m feedMessage) {
	topic := strings.ToLower(strings.TrimSpace(m.Topic))
	if topic == "" {
		return
	}

	conf := m.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	direction := domain.SignalNeutral
	switch strings.ToLower(m.Direction) {
	case "bullish":
		direction = domain.SignalBullish
	case "bearish":
		direction = domain.SignalBearish
	}

	f.mu.Lock()
	f.items[topic] = domain.SignalItem{
		Source:     m.Source,
		Direction:  direction,
		Confidence: conf,
		Summary:    m.Summary,
		ObservedAt: time.Now().UTC(),
	}
	f.mu.Unlock()
}

// SignalFor returns the non-stale items whose topic appears as a substring of
// the question. Matching is intentionally coarse; the scorer weighs
// confidence, not match quality.
func (f *FeedSource) SignalFor(_ context.Context, question string) (domain.SignalBundle, error) {
	bundle := domain.SignalBundle{Question: question}
	q := strings.ToLower(question)
	cutoff := time.Now().UTC().Add(-f.cfg.MaxAge)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for topic, item := range f.items {
		if item.ObservedAt.Before(cutoff) {
			continue
		}
		if strings.Contains(q, topic) {
			bundle.Items = append(bundle.Items, item)
		}
	}
	return bundle, nil
}

var _ Source = (*FeedSource)(nil)
