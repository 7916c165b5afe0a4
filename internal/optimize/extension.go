// Package optimize turns inbound update, get, track and reset requests into
// proposition cache operations and outbound events.
//
// Every request is handled on a single worker goroutine. The caches are owned by
// that goroutine; the queue hand-off is the only synchronization point.
package optimize

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/TimurManjosov/goptimize/internal/cache"
	"github.com/TimurManjosov/goptimize/internal/logging"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

const (
	// DefaultQueueSize is the buffer size of the worker queue.
	DefaultQueueSize = 1000

	// DefaultMaxPending bounds the number of update requests awaiting completion.
	DefaultMaxPending = 1000
)

// Configuration keys read from the ConfigSource.
const (
	ConfigKeyEdgeConfigID = "edge.configId"
	ConfigKeyDatasetID    = "optimize.datasetId"
)

// Dispatcher receives the events the extension emits.
type Dispatcher interface {
	Dispatch(ev Event)
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(ev Event)

func (f DispatcherFunc) Dispatch(ev Event) { f(ev) }

// ConfigSource supplies the shared configuration. An empty map means no network
// destination is configured.
type ConfigSource interface {
	Configuration() map[string]any
}

// StaticConfig is a fixed ConfigSource.
type StaticConfig map[string]any

func (c StaticConfig) Configuration() map[string]any { return c }

type task func()

// Extension is the request orchestrator.
type Extension struct {
	out    Dispatcher
	config ConfigSource
	log    *logrus.Entry

	cache   *cache.Cache
	preview *cache.Cache

	pending    map[string]pendingUpdate
	edgeErrors map[string]EdgeError
	pendingSeq uint64
	maxPending int

	queue   chan task
	done    chan struct{}
	mu      sync.RWMutex
	started bool
	closed  bool
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger. Entries are tagged component=optimize.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Extension) {
		e.log = l.WithField("component", "optimize")
	}
}

// WithQueueSize sets the worker queue buffer size.
func WithQueueSize(n int) Option {
	return func(e *Extension) {
		if n > 0 {
			e.queue = make(chan task, n)
		}
	}
}

// WithMaxPending bounds the number of tracked in-flight update requests. When
// the bound is reached the oldest request is forgotten.
func WithMaxPending(n int) Option {
	return func(e *Extension) {
		if n > 0 {
			e.maxPending = n
		}
	}
}

// New creates an Extension that emits events to out and reads its configuration
// from config. Call Start before handling events.
func New(out Dispatcher, config ConfigSource, opts ...Option) *Extension {
	e := &Extension{
		out:        out,
		config:     config,
		log:        logging.Component("optimize"),
		cache:      cache.New(),
		preview:    cache.New(),
		pending:    make(map[string]pendingUpdate),
		edgeErrors: make(map[string]EdgeError),
		maxPending: DefaultMaxPending,
		queue:      make(chan task, DefaultQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins processing queued events.
func (e *Extension) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	go e.run()
}

// Close stops accepting events and waits for queued events to be processed.
// Close is safe to call multiple times.
func (e *Extension) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.started
	close(e.queue)
	e.mu.Unlock()

	if !started {
		e.run()
		return nil
	}
	<-e.done
	return nil
}

// Handle queues an inbound event. It does not block: when the queue is full
// the event is dropped and ErrQueueFull is returned.
func (e *Extension) Handle(ev Event) error {
	err := e.submit(func() { e.route(ev) })
	switch err {
	case nil:
		e.log.WithFields(logrus.Fields{"event": ev.Name, "id": ev.ID}).Trace("event queued")
	case ErrQueueFull:
		telemetry.EventsDropped.Inc()
		e.log.WithFields(logrus.Fields{"event": ev.Name, "id": ev.ID, "queue_size": cap(e.queue)}).
			Warn("queue full, dropping event")
	}
	return err
}

func (e *Extension) submit(t task) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	select {
	case e.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Extension) run() {
	defer close(e.done)
	for t := range e.queue {
		e.safely(t)
	}
}

func (e *Extension) safely(t task) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("event handler panicked")
		}
	}()
	t()
}

func (e *Extension) route(ev Event) {
	switch {
	case ev.Is(TypeOptimize, SourceRequestContent):
		e.handleRequestContent(ev)
	case ev.Is(TypeEdge, SourcePersonalizationDecisions):
		e.handleEdgeResponse(ev)
	case ev.Is(TypeEdge, SourceErrorResponseContent):
		e.handleEdgeError(ev)
	case ev.Is(TypeEdge, SourceContentComplete):
		e.handleContentComplete(ev)
	case ev.Is(TypeOptimize, SourceRequestReset):
		e.handleReset(ev, "reset")
	case ev.Is(TypeGenericIdentity, SourceRequestReset):
		e.handleReset(ev, "identity_reset")
	case ev.Is(TypeSystem, SourceDebug):
		e.handleDebug(ev)
	default:
		e.log.WithFields(logrus.Fields{"type": ev.Type, "source": ev.Source}).Trace("ignoring unrouted event")
	}
}

func (e *Extension) emit(ev Event) {
	telemetry.OutboundEvents.WithLabelValues(ev.Name).Inc()
	e.log.WithFields(logrus.Fields{"event": ev.Name, "id": ev.ID}).Trace("dispatching event")
	e.out.Dispatch(ev)
}

func (e *Extension) updateGauges() {
	telemetry.CachedPropositions.Set(float64(e.cache.Len()))
	telemetry.PreviewPropositions.Set(float64(e.preview.Len()))
}

// configuration returns the current shared configuration, or nil when none is set.
func (e *Extension) configuration() map[string]any {
	if e.config == nil {
		return nil
	}
	cfg := e.config.Configuration()
	if len(cfg) == 0 {
		return nil
	}
	return cfg
}
