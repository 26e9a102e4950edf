// Package netmon observes connectivity to the plan server through active reachability probes.
package netmon

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Quality is a coarse classification of the current connection.
type Quality string

const (
	QualityOffline   Quality = "offline"
	QualityPoor      Quality = "poor"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// Latency thresholds for quality classification.
const (
	excellentThreshold = 150 * time.Millisecond
	goodThreshold      = 500 * time.Millisecond
)

// StateChange is delivered to subscribers whenever connectivity transitions.
type StateChange struct {
	Online     bool
	WasOffline bool // true only on the offline→online transition
	Quality    Quality
	CheckedAt  time.Time
}

// Option configures optional behaviour for the Monitor.
type Option func(*Monitor)

// WithLogger overrides the logger used to report probe activity.
func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithHTTPClient overrides the probe client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Monitor) {
		m.client = client
	}
}

// Monitor tracks whether the remote collaborator is reachable.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *log.Logger

	mu         sync.Mutex
	online     bool
	wasOffline bool
	quality    Quality
	checkedAt  time.Time
	subs       []chan StateChange
	closed     bool
}

// NewMonitor constructs a Monitor probing the given URL. The monitor starts
// optimistically online; the first probe corrects the assumption.
func NewMonitor(probeURL string, interval, timeout time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		logger:   log.New(log.Writer(), "[netmon] ", log.LstdFlags),
		online:   true,
		quality:  QualityGood,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnline reports the most recently observed connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// CurrentQuality reports the most recently observed connection quality.
func (m *Monitor) CurrentQuality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality
}

// ConsumeWasOffline reports whether an offline→online transition occurred since
// the last call, clearing the flag.
func (m *Monitor) ConsumeWasOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.wasOffline
	m.wasOffline = false
	return was
}

// Subscribe registers a channel that receives connectivity transitions. The
// channel is closed when the monitor shuts down.
func (m *Monitor) Subscribe() <-chan StateChange {
	ch := make(chan StateChange, 8)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch
	}
	m.subs = append(m.subs, ch)
	return ch
}

// Run probes immediately and then on every tick until the context is cancelled.
// Subscriber channels are closed on return.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer func() {
		ticker.Stop()
		m.closeSubs()
	}()

	m.CheckConnection(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckConnection(ctx)
		}
	}
}

// CheckConnection performs one reachability probe and returns the resulting
// online state. A failed probe resolves to offline; it never returns an error.
func (m *Monitor) CheckConnection(ctx context.Context) bool {
	online, quality := m.probe(ctx)

	m.mu.Lock()
	transitioned := online != m.online
	regained := transitioned && online
	m.online = online
	m.quality = quality
	m.checkedAt = time.Now().UTC()
	if regained {
		m.wasOffline = true
	}
	change := StateChange{Online: online, WasOffline: regained, Quality: quality, CheckedAt: m.checkedAt}
	var subs []chan StateChange
	if transitioned {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	if transitioned {
		m.logger.Printf("connectivity changed: online=%t quality=%s", online, quality)
		recordTransition(online)
		for _, sub := range subs {
			select {
			case sub <- change:
			default:
				// Slow subscribers miss intermediate transitions rather than
				// blocking the probe loop.
			}
		}
	}
	return online
}

func (m *Monitor) probe(ctx context.Context) (bool, Quality) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Printf("probe request build failed: %v", err)
		return false, QualityOffline
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		recordProbe(false, 0)
		return false, QualityOffline
	}
	resp.Body.Close()

	latency := time.Since(start)
	recordProbe(true, latency)
	return true, classify(latency)
}

func classify(latency time.Duration) Quality {
	switch {
	case latency < excellentThreshold:
		return QualityExcellent
	case latency < goodThreshold:
		return QualityGood
	default:
		return QualityPoor
	}
}

func (m *Monitor) closeSubs() {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.closed = true
	m.mu.Unlock()
	for _, sub := range subs {
		close(sub)
	}
}
