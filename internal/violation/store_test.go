package violation

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MemAdapter) {
	t.Helper()
	mem := storage.NewMemAdapter()
	s := NewStore(mem, zerolog.Nop())
	if err := s.Hydrate(); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	return s, mem
}

func TestHydrate_SeedsOnFirstRun(t *testing.T) {
	s, _ := newTestStore(t)
	st := s.Stats()
	if st.Total != 3 || st.Pending != 2 || st.Confirmed != 1 || st.Dismissed != 0 {
		t.Fatalf("unexpected seed stats: %+v", st)
	}
}

func TestHydrate_RoundTrip(t *testing.T) {
	s, mem := newTestStore(t)
	s.Add(Violation{Speed: 67, SpeedLimit: 35, LicensePlate: "NEW-0001", Status: StatusPending})

	s2 := NewStore(mem, zerolog.Nop())
	if err := s2.Hydrate(); err != nil {
		t.Fatalf("second hydrate failed: %v", err)
	}
	a, b := s.All(), s2.All()
	if len(a) != len(b) {
		t.Fatalf("round trip length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].LicensePlate != b[i].LicensePlate || a[i].Status != b[i].Status {
			t.Fatalf("record %d differs after round trip: %+v vs %+v", i, a[i], b[i])
		}
		if !a[i].Timestamp.Equal(b[i].Timestamp) {
			t.Fatalf("record %d timestamp differs: %v vs %v", i, a[i].Timestamp, b[i].Timestamp)
		}
	}
}

func TestAdd_UniqueIDsAndNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	seen := map[int64]bool{}
	for _, v := range s.All() {
		seen[v.ID] = true
	}
	var last Violation
	for i := 0; i < 50; i++ {
		last = s.Add(Violation{Speed: 50, SpeedLimit: 30})
		if seen[last.ID] {
			t.Fatalf("duplicate id %d", last.ID)
		}
		seen[last.ID] = true
	}
	all := s.All()
	if len(all) != 53 {
		t.Fatalf("expected 53 records, got %d", len(all))
	}
	if all[0].ID != last.ID {
		t.Fatalf("expected newest record at index 0")
	}
}

func TestAdd_DefaultsAndAnnouncement(t *testing.T) {
	s, _ := newTestStore(t)
	ann := &recordingAnnouncer{done: make(chan string, 1)}
	s.SetAnnouncer(ann)

	v := s.Add(Violation{Speed: 67, SpeedLimit: 35})
	if v.Status != StatusPending {
		t.Fatalf("expected default pending status, got %q", v.Status)
	}
	if v.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be assigned")
	}
	select {
	case text := <-ann.done:
		if text != "New violation detected" {
			t.Fatalf("unexpected announcement %q", text)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for announcement")
	}
}

func TestUpdate_StatusTransition(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Stats()
	var pendingID int64
	for _, v := range s.All() {
		if v.Status == StatusPending {
			pendingID = v.ID
			break
		}
	}
	confirmed := StatusConfirmed
	if !s.Update(pendingID, Patch{Status: &confirmed}) {
		t.Fatalf("expected update to find record %d", pendingID)
	}
	after := s.Stats()
	if after.Confirmed != before.Confirmed+1 || after.Pending != before.Pending-1 {
		t.Fatalf("unexpected stats after confirm: before=%+v after=%+v", before, after)
	}

	// Terminal statuses are not guarded; the product keeps this permissive.
	dismissed := StatusDismissed
	if !s.Update(pendingID, Patch{Status: &dismissed}) {
		t.Fatalf("expected permissive re-transition")
	}
	if got, _ := s.Get(pendingID); got.Status != StatusDismissed {
		t.Fatalf("expected dismissed, got %q", got.Status)
	}
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.All()
	confirmed := StatusConfirmed
	if s.Update(999999999, Patch{Status: &confirmed}) {
		t.Fatalf("expected unknown id to be a no-op")
	}
	after := s.All()
	if len(before) != len(after) {
		t.Fatalf("list changed on no-op update")
	}
}

func TestStats_EmptyListAverageSpeed(t *testing.T) {
	mem := storage.NewMemAdapter()
	// Pre-store an empty list so hydrate does not seed.
	if err := mem.Save([]byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	s := NewStore(mem, zerolog.Nop())
	if err := s.Hydrate(); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	st := s.Stats()
	if st.Total != 0 {
		t.Fatalf("expected empty store, got %d", st.Total)
	}
	if st.AverageSpeed != 0 {
		t.Fatalf("expected 0 average speed on empty list, got %v", st.AverageSpeed)
	}
}

func TestPersistFailure_MemoryStaysAuthoritative(t *testing.T) {
	s, mem := newTestStore(t)
	mem.FailSaves = true
	s.Add(Violation{Speed: 72, SpeedLimit: 40})
	if got := s.Stats().Total; got != 4 {
		t.Fatalf("expected in-memory add despite save failure, got %d records", got)
	}
}

func TestList_Filters(t *testing.T) {
	s, _ := newTestStore(t)
	if got := len(s.List("abc", "")); got != 1 {
		t.Fatalf("expected 1 match for plate query, got %d", got)
	}
	if got := len(s.List("", "pending")); got != 2 {
		t.Fatalf("expected 2 pending, got %d", got)
	}
	if got := len(s.List("highway", "pending")); got != 1 {
		t.Fatalf("expected 1 pending highway record, got %d", got)
	}
	if got := len(s.List("", "all")); got != 3 {
		t.Fatalf("expected all records, got %d", got)
	}
}

func TestSubscribe_ReceivesAdds(t *testing.T) {
	s, _ := newTestStore(t)
	ch, cancel := s.Subscribe(4)
	defer cancel()
	added := s.Add(Violation{Speed: 61, SpeedLimit: 35})
	select {
	case got := <-ch:
		if got.ID != added.ID {
			t.Fatalf("expected id %d, got %d", added.ID, got.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for subscription event")
	}
}

func TestAdd_ConcurrentUniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)
	var wg sync.WaitGroup
	const n = 20
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(Violation{Speed: 55, SpeedLimit: 30})
		}()
	}
	wg.Wait()
	seen := map[int64]bool{}
	for _, v := range s.All() {
		if seen[v.ID] {
			t.Fatalf("duplicate id %d", v.ID)
		}
		seen[v.ID] = true
	}
	if len(seen) != n+3 {
		t.Fatalf("expected %d records, got %d", n+3, len(seen))
	}
}

type recordingAnnouncer struct {
	done chan string
}

func (r *recordingAnnouncer) Announce(text string) {
	select {
	case r.done <- text:
	default:
	}
}
