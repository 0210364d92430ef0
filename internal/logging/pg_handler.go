package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PGHandler is an slog.Handler that batches ERROR+ logs to PostgreSQL.
type PGHandler struct {
	shared *pgSink
	attrs  []slog.Attr
}

// pgSink is the buffer shared by a handler and its WithAttrs children.
type pgSink struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	sink := &pgSink{
		db:     db,
		buffer: make([]models.SystemLog, 0, 50),
		ticker: time.NewTicker(5 * time.Second),
		done:   make(chan struct{}),
	}
	go sink.flushLoop()
	return &PGHandler{shared: sink}
}

func (s *pgSink) flushLoop() {
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *pgSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, 50)
	s.mu.Unlock()

	if err := s.db.CreateInBatches(batch, 50).Error; err != nil {
		slog.Warn("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Flush writes buffered records now.
func (h *PGHandler) Flush() {
	h.shared.flush()
}

func (h *PGHandler) Stop() {
	h.shared.ticker.Stop()
	close(h.shared.done)
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "household_id":
			entry.HouseholdID = a.Value.String()
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			if s := a.Value.String(); s != "" {
				entry.UserID = &s
			}
		case "function":
			entry.Function = a.Value.String()
		case "code":
			entry.Code = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			entry.LatencyMs = latencyMs(a.Value)
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	sink := h.shared
	sink.mu.Lock()
	sink.buffer = append(sink.buffer, entry)
	needFlush := len(sink.buffer) >= 50
	sink.mu.Unlock()

	if needFlush {
		go sink.flush()
	}
	return nil
}

func latencyMs(v slog.Value) int {
	switch v.Kind() {
	case slog.KindInt64:
		return int(v.Int64())
	case slog.KindFloat64:
		return int(math.Round(v.Float64()))
	case slog.KindDuration:
		return int(v.Duration().Milliseconds())
	default:
		return 0
	}
}

// WithAttrs returns a handler sharing the same buffer that adds attrs to every record.
func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PGHandler{shared: h.shared, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}
