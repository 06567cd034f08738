package supervisor

import "sync"

// Record is the tracked state of one unit. Running and PID always agree:
// a running record has a positive pid and an idle record has none.
type Record struct {
	PID     int         `json:"pid"`
	Running bool        `json:"running"`
	Config  *CoreConfig `json:"config,omitempty"`
}

// Valid reports whether Running and PID agree.
func (r Record) Valid() bool {
	if r.Running {
		return r.PID > 0
	}
	return r.PID == 0
}

func (r Record) clone() Record {
	if r.Config != nil {
		c := *r.Config
		r.Config = &c
	}
	return r
}

// Store holds one Record. Reads return snapshots; writes are atomic
// read-modify-write steps that never publish an invalid record.
type Store struct {
	mu  sync.RWMutex
	rec Record
}

// Read returns a copy of the current record.
func (s *Store) Read() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.clone()
}

// Write replaces the record with fn(current). If the result is invalid the
// record is left unchanged and ErrInvalidRecord is returned along with the
// current record.
func (s *Store) Write(fn func(Record) Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.rec.clone())
	if !next.Valid() {
		return s.rec.clone(), ErrInvalidRecord
	}
	s.rec = next.clone()
	return next, nil
}
