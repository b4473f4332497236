package audit

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink records audit entries on a background goroutine. Record never
// blocks the caller; entries are dropped when the buffer is full.
type Sink struct {
	writer       repository.AuditWriter
	entries      chan domain.AuditEntry
	writeTimeout time.Duration
	log          *zap.SugaredLogger
	metrics      *metrics.Registry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewSink(writer repository.AuditWriter, buffer int, log *zap.SugaredLogger, m *metrics.Registry) *Sink {
	s := &Sink{
		writer:       writer,
		entries:      make(chan domain.AuditEntry, buffer),
		writeTimeout: 5 * time.Second,
		log:          log,
		metrics:      m,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) Record(ctx context.Context, entry domain.AuditEntry) {
	if c, ok := clientFrom(ctx); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = c.ip
		}
		if entry.UserAgent == "" {
			entry.UserAgent = c.userAgent
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(entry, "sink closed")
		return
	}
	select {
	case s.entries <- entry:
	default:
		s.drop(entry, "buffer full")
	}
}

// Close flushes buffered entries and stops the writer.
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sink) run() {
	defer s.wg.Done()
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		err := s.writer.InsertAudit(ctx, entry)
		cancel()
		if err != nil {
			s.drop(entry, err.Error())
		}
	}
}

func (s *Sink) drop(entry domain.AuditEntry, reason string) {
	s.metrics.AuditDrop()
	s.log.Warnw("audit entry dropped",
		"action", entry.Action,
		"actor_type", entry.ActorType,
		"actor_id", entry.ActorID,
		"reason", reason)
}
