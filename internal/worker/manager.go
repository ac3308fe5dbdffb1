package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"arthub/internal/queue"
	"arthub/internal/store"
)

const (
	// DefaultWorkerCount is the number of consumer goroutines in the group
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of entries read per XREADGROUP
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long a read waits for new entries
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts bounds redelivery of an event whose handler hit a
	// transient store or network error.
	DefaultMaxAttempts = 3
	retryBaseDelay     = 200 * time.Millisecond
)

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	Stream       string
	Group        string
	WorkerCount  int           // goroutines, each its own consumer name
	BatchSize    int64         // entries per read
	BlockTimeout time.Duration // XREADGROUP block
	MaxAttempts  int           // handler attempts per entry
}

// DefaultManagerConfig returns the notification group on the events stream.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Stream:       queue.StreamEvents,
		Group:        queue.ConsumerGroupNotify,
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// Manager runs a pool of consumers in one group. Each entry is handled by
// exactly one worker and acknowledged once handled, whatever the outcome.
type Manager struct {
	consumer queue.Consumer
	handler  *Handler
	cfg      ManagerConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager fills zero fields of cfg from DefaultManagerConfig.
func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.Group == "" {
		cfg.Group = def.Group
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Manager{consumer: consumer, handler: handler, cfg: cfg}
}

// Start creates the group and launches the workers. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, m.cfg.Stream, m.cfg.Group); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.run(i)
	}
	log.Printf("[Manager] Started %d workers on %s (group %s)", m.cfg.WorkerCount, m.cfg.Stream, m.cfg.Group)
	return nil
}

// Stop cancels the workers and waits for the in-flight entries to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// run is the loop of one worker goroutine.
func (m *Manager) run(workerID int) {
	defer m.wg.Done()
	consumer := consumerNameForWorker(workerID)
	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumer)

	// Crash recovery: the consumer name is stable across restarts, so
	// ReadPending ("0") returns what this worker read but never acked.
	// Drain it before taking new entries.
	for m.ctx.Err() == nil {
		messages, err := m.consumer.ReadPending(m.ctx, m.cfg.Stream, m.cfg.Group, consumer, m.cfg.BatchSize)
		if err != nil {
			log.Printf("[Worker-%d] Reading pending entries: %v", workerID, err)
			break
		}
		if len(messages) == 0 {
			break
		}
		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		m.handleBatch(workerID, messages)
	}

	// Main loop: ">" reads block up to BlockTimeout and return nothing on
	// timeout, which re-checks ctx.
	for m.ctx.Err() == nil {
		messages, err := m.consumer.Read(m.ctx, m.cfg.Stream, m.cfg.Group, consumer, m.cfg.BatchSize, m.cfg.BlockTimeout)
		if err != nil {
			if m.ctx.Err() != nil {
				break
			}
			log.Printf("[Worker-%d] Read: %v", workerID, err)
			m.sleep(time.Second) // back off on error
			continue
		}
		m.handleBatch(workerID, messages)
	}
	log.Printf("[Worker-%d] Shutting down", workerID)
}

// handleBatch handles then acknowledges every entry in order. An entry that
// failed is still acked: retries happen in handle, and an unacked entry
// would be replayed by ReadPending on every restart.
func (m *Manager) handleBatch(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		log.Printf("[Worker-%d] Processing msgID=%s type=%s", workerID, msg.ID, msg.Event.Type)
		if msg.Err != nil {
			log.Printf("[Worker-%d] Dropping undecodable %v", workerID, msg.Err)
		} else if err := m.handle(msg.Event); err != nil {
			log.Printf("[Worker-%d] Giving up on msgID=%s type=%s: %v", workerID, msg.ID, msg.Event.Type, err)
		}

		// XACK removes the entry from the group's PEL
		if err := m.consumer.Ack(m.ctx, m.cfg.Stream, m.cfg.Group, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

// handle retries transient failures with linear backoff. Other errors
// (unknown event type, missing recipient) are final.
func (m *Manager) handle(event queue.Event) error {
	var err error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		err = m.handler.HandleEvent(m.ctx, event)
		if err == nil || !store.IsTransient(err) || attempt == m.cfg.MaxAttempts {
			return err
		}
		if !m.sleep(time.Duration(attempt) * retryBaseDelay) {
			return err
		}
	}
	return err
}

// sleep waits for d and reports false if the manager was stopped meanwhile.
func (m *Manager) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// consumerNameForWorker must stay stable per worker id so pending entries
// find their way back to the same worker after a restart.
func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
