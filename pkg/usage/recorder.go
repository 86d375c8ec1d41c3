package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig contains configuration for the usage recorder.
type RecorderConfig struct {
	// Enabled enables usage recording.
	Enabled bool

	// BufferSize is the size of the async write channel buffer.
	// Default: 1000
	BufferSize int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes usage records asynchronously so the request path
// never blocks on the ledger. When the buffer is full, records are
// dropped with a log line rather than stalling requests.
type Recorder struct {
	storage    Storage
	config     *RecorderConfig
	recordChan chan *Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a usage recorder backed by storage and starts
// its background writer.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *Record, config.BufferSize),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "usage.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues a usage record for async writing. It returns
// immediately; a full buffer drops the record.
func (r *Recorder) Record(record *Record) {
	if !r.config.Enabled || record == nil {
		return
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	select {
	case r.recordChan <- record:
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping usage record",
			"record_id", record.ID,
			"identity", record.Identity,
		)
	default:
		r.logger.Error("usage record buffer full, dropping record",
			"record_id", record.ID,
			"identity", record.Identity,
			"buffer_size", r.config.BufferSize,
		)
	}
}

// Summarize aggregates the identity's ledger entries from storage.
func (r *Recorder) Summarize(ctx context.Context, identity string) (*Summary, error) {
	return r.storage.Summarize(ctx, identity)
}

// Close drains the buffer and waits for pending writes to finish.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records before exit.
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store usage record",
			"record_id", record.ID,
			"identity", record.Identity,
			"error", err,
		)
		return
	}

	r.logger.Debug("usage recorded",
		"record_id", record.ID,
		"identity", record.Identity,
		"provider", record.Provider,
		"cache_hit", record.CacheHit,
	)
}
