package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/logging"
	"fleetworks/depot/pkg/telemetry/metrics"
)

// Writer is the persistence side of the recorder.
type Writer interface {
	Insert(ctx context.Context, e *Entry) error
}

// Config contains configuration for the audit recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	WriteTimeout time.Duration
}

// Recorder writes audit entries through a background worker so request
// handlers do not wait on the audit insert. When the buffer is full the
// entry is written synchronously instead of being dropped.
type Recorder struct {
	writer   Writer
	config   Config
	redactor *logging.Redactor
	metrics  *metrics.Collector
	logger   *slog.Logger

	entries chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder and starts its worker. collector may be nil.
func NewRecorder(writer Writer, cfg Config, collector *metrics.Collector) *Recorder {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		writer:   writer,
		config:   cfg,
		redactor: logging.NewRedactor(),
		metrics:  collector,
		logger:   slog.Default().With("component", "audit.recorder"),
		entries:  make(chan *Entry, cfg.AsyncBuffer),
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record stamps e with an id, the current time and the actor and request
// metadata found in ctx, then queues it for writing.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	r.prepare(ctx, &e)

	r.mu.RLock()
	if !r.closed {
		select {
		case r.entries <- &e:
			r.mu.RUnlock()
			r.metrics.SetAuditQueueDepth(len(r.entries))
			return nil
		default:
		}
	}
	r.mu.RUnlock()

	r.logger.Debug("audit buffer full or closed, writing synchronously", "action", e.Action)
	return r.write(&e)
}

func (r *Recorder) prepare(ctx context.Context, e *Entry) {
	if e.ID == "" {
		e.ID = storage.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = storage.Now()
	}
	if e.ActorID == "" {
		actor := identity.ActorOrSystem(ctx)
		e.ActorID = actor.ID
		e.ActorType = actor.Type
	}
	if e.RequestID == "" {
		e.RequestID = logging.GetRequestID(ctx)
	}
	if e.IPAddress == "" {
		e.IPAddress = identity.ClientIP(ctx)
	}
	e.Changes.V = r.redactor.RedactMap(e.Changes.V)
}

// Close stops accepting asynchronous entries, drains the buffer and waits
// for the worker to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("audit recorder shut down")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.entries:
			_ = r.write(e)
			r.metrics.SetAuditQueueDepth(len(r.entries))

		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					_ = r.write(e)
				default:
					r.metrics.SetAuditQueueDepth(0)
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e *Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.writer.Insert(ctx, e); err != nil {
		r.metrics.RecordAuditDrop()
		r.logger.Error("failed to write audit entry",
			"entry_id", e.ID,
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"error", err,
		)
		return err
	}
	return nil
}
