package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/storage"
	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

type recordingUploader struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingUploader) Upload(key, _ string, _ []byte) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return nil
}

func (r *recordingUploader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func newEmptyStore(t *testing.T) *violation.Store {
	t.Helper()
	mem := storage.NewMemAdapter()
	if err := mem.Save([]byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	s := violation.NewStore(mem, zerolog.Nop())
	if err := s.Hydrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPipeline_RunsToCompletion(t *testing.T) {
	store := newEmptyStore(t)
	up := &recordingUploader{}
	p := New(store, up, zerolog.Nop())
	p.StageDelay = 2 * time.Millisecond

	job := p.Start(context.Background(), "dashcam.mp4", 1024)
	if job.Status != StatusProcessing || job.Stage != "Detecting vehicles" {
		t.Fatalf("unexpected initial job: %+v", job)
	}

	deadline := time.Now().Add(2 * time.Second)
	var final Job
	for time.Now().Before(deadline) {
		got, ok := p.Job(job.ID)
		if !ok {
			t.Fatalf("job disappeared")
		}
		if got.Status == StatusComplete {
			final = got
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if final.Status != StatusComplete {
		t.Fatalf("job never completed")
	}
	if final.Progress != 100 || final.Stage != "Generating reports" {
		t.Fatalf("unexpected final job: %+v", final)
	}
	if n := len(final.ViolationIDs); n < 1 || n > 3 {
		t.Fatalf("expected 1-3 emitted violations, got %d", n)
	}
	if got := store.Stats().Total; got != len(final.ViolationIDs) {
		t.Fatalf("store has %d records, job reported %d", got, len(final.ViolationIDs))
	}
	if up.count() != 1 {
		t.Fatalf("expected one evidence report upload, got %d", up.count())
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	store := newEmptyStore(t)
	p := New(store, nil, zerolog.Nop())
	p.StageDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	job := p.Start(ctx, "clip.mov", 10)
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		got, _ := p.Job(job.ID)
		if got.Status == StatusCancelled {
			if store.Stats().Total != 0 {
				t.Fatalf("cancelled job must not emit violations")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never reported cancellation")
}

func TestPipeline_UnknownJob(t *testing.T) {
	p := New(newEmptyStore(t), nil, zerolog.Nop())
	if _, ok := p.Job("upl_missing"); ok {
		t.Fatalf("expected unknown job to report !ok")
	}
}
