// Package alerts holds recent detections in a bounded ring buffer for the
// dashboard API.
package alerts

import (
	"sync"
	"time"

	"shelfguard/internal/model"
)

type Store struct {
	mu    sync.RWMutex
	buf   []model.Detection
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(det model.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, det)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = det
}

func (s *Store) AddAll(detections []model.Detection) {
	for _, det := range detections {
		s.Add(det)
	}
}

func (s *Store) List(limit int) []model.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.Detection, 0, limit)
	for i := len(s.buf) - limit; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Since(ts time.Time) []model.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Detection, 0)
	for _, det := range s.buf {
		if !det.Timestamp.Before(ts) {
			out = append(out, det)
		}
	}
	return out
}

func (s *Store) BySeverity(severity model.Severity) []model.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Detection, 0)
	for _, det := range s.buf {
		if det.Severity == severity {
			out = append(out, det)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
