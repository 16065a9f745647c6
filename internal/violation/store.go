package violation

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/storage"
)

// Announcer receives the spoken notification for a newly detected violation.
// Implementations must not block for long; errors stay on their side.
type Announcer interface {
	Announce(text string)
}

// Store owns the violation list. All mutations go through Add/Update; every
// mutation rewrites the full list through the storage adapter. Persistence is
// best-effort: a failed write keeps the in-memory list authoritative.
type Store struct {
	mu        sync.Mutex
	adapter   storage.Adapter
	announcer Announcer
	log       zerolog.Logger

	items   []Violation
	lastID  int64
	subs    map[int]chan Violation
	nextSub int
}

func NewStore(adapter storage.Adapter, log zerolog.Logger) *Store {
	return &Store{
		adapter: adapter,
		log:     log,
		subs:    make(map[int]chan Violation),
	}
}

// SetAnnouncer installs the spoken-notification hook. Optional.
func (s *Store) SetAnnouncer(a Announcer) {
	s.mu.Lock()
	s.announcer = a
	s.mu.Unlock()
}

// Hydrate loads the persisted list, seeding demo records on first run.
func (s *Store) Hydrate() error {
	data, ok, err := s.adapter.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.items = Seed(time.Now().UTC())
		s.trackIDsLocked()
		s.persistLocked()
		s.log.Info().Int("count", len(s.items)).Msg("seeded demo violations")
		return nil
	}
	var items []Violation
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = items
	s.trackIDsLocked()
	s.log.Info().Int("count", len(s.items)).Msg("hydrated violations")
	return nil
}

func (s *Store) trackIDsLocked() {
	for _, v := range s.items {
		if v.ID > s.lastID {
			s.lastID = v.ID
		}
	}
}

// Add assigns a fresh id, prepends the record (newest first), persists, and
// fires the spoken notification. The stored record is returned.
func (s *Store) Add(v Violation) Violation {
	s.mu.Lock()
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	v.ID = id
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	if v.Status == "" {
		v.Status = StatusPending
	}
	s.items = append([]Violation{v}, s.items...)
	s.persistLocked()
	announcer := s.announcer
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
		}
	}
	s.mu.Unlock()

	if announcer != nil {
		// Fire and forget; a silent assistant must never fail the caller.
		go announcer.Announce("New violation detected")
	}
	return v
}

// Update shallow-merges patch into the record with the given id and persists.
// It reports whether a record was found; an unknown id is a no-op.
func (s *Store) Update(id int64, patch Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			patch.apply(&s.items[i])
			s.persistLocked()
			return true
		}
	}
	return false
}

// Get returns the record with the given id.
func (s *Store) Get(id int64) (Violation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.items {
		if v.ID == id {
			return v, true
		}
	}
	return Violation{}, false
}

// All returns a snapshot of the list, newest first.
func (s *Store) All() []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Violation, len(s.items))
	copy(out, s.items)
	return out
}

// List filters the snapshot by a case-insensitive substring over plate,
// location and vehicle, and by status ("" or "all" matches every status).
func (s *Store) List(query string, status string) []Violation {
	query = strings.ToLower(strings.TrimSpace(query))
	all := s.All()
	if query == "" && (status == "" || status == "all") {
		return all
	}
	out := make([]Violation, 0, len(all))
	for _, v := range all {
		if query != "" &&
			!strings.Contains(strings.ToLower(v.LicensePlate), query) &&
			!strings.Contains(strings.ToLower(v.Location), query) &&
			!strings.Contains(strings.ToLower(v.Vehicle), query) {
			continue
		}
		if status != "" && status != "all" && string(v.Status) != status {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Stats aggregates the current list. AverageSpeed is 0 for an empty list.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.items)}
	var sum float64
	for _, v := range s.items {
		switch v.Status {
		case StatusPending:
			st.Pending++
		case StatusConfirmed:
			st.Confirmed++
		case StatusDismissed:
			st.Dismissed++
		}
		sum += v.Speed
	}
	if st.Total > 0 {
		st.AverageSpeed = sum / float64(st.Total)
	}
	return st
}

// Subscribe returns a channel receiving every record added after the call and
// a cancel func. Sends never block; a slow consumer misses records.
func (s *Store) Subscribe(buffer int) (<-chan Violation, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Violation, buffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal violations")
		return
	}
	if err := s.adapter.Save(data); err != nil {
		// In-memory state stays authoritative for the session.
		s.log.Warn().Err(err).Msg("persist violations failed")
	}
}
