package analysis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/evidence"
	"github.com/learnerguy001/Smart-Traffic-main/internal/generator"
	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

// Detection is simulated: uploads run through fixed stages on a timer and
// finish by emitting synthesized violations into the store.
var stages = []string{
	"Detecting vehicles",
	"Calculating speeds",
	"Reading license plates",
	"Generating reports",
}

type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusCancelled  JobStatus = "cancelled"
)

// Job tracks one uploaded video through the pipeline.
type Job struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	Status       JobStatus `json:"status"`
	Stage        string    `json:"stage"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	ViolationIDs []int64   `json:"violationIds"`
}

// Pipeline runs simulated analysis jobs.
type Pipeline struct {
	store    *violation.Store
	uploader evidence.Uploader
	log      zerolog.Logger

	// StageDelay is how long each stage takes. Test hook.
	StageDelay time.Duration

	mu   sync.Mutex
	jobs map[string]*Job
	rnd  *mrand.Rand
}

func New(store *violation.Store, uploader evidence.Uploader, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		uploader:   uploader,
		log:        log,
		StageDelay: 750 * time.Millisecond,
		jobs:       make(map[string]*Job),
		rnd:        mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
}

// Start registers a job and launches its staged run. The returned snapshot is
// the job's initial state.
func (p *Pipeline) Start(ctx context.Context, filename string, size int64) Job {
	job := &Job{
		ID:        newJobID(),
		Filename:  filename,
		Size:      size,
		Status:    StatusProcessing,
		Stage:     stages[0],
		CreatedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.jobs[job.ID] = job
	snapshot := *job
	p.mu.Unlock()

	go p.run(ctx, job.ID)
	p.log.Info().Str("job", job.ID).Str("file", filename).Int64("size", size).Msg("upload analysis started")
	return snapshot
}

// Job returns a snapshot of the job with the given id.
func (p *Pipeline) Job(id string) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (p *Pipeline) run(ctx context.Context, id string) {
	for i := range stages {
		select {
		case <-ctx.Done():
			p.update(id, func(j *Job) { j.Status = StatusCancelled })
			return
		case <-time.After(p.StageDelay):
		}
		stageIdx := i
		p.update(id, func(j *Job) {
			j.Stage = stages[stageIdx]
			j.Progress = (stageIdx + 1) * 100 / len(stages)
		})
	}

	p.mu.Lock()
	count := 1 + p.rnd.Intn(3)
	drafts := make([]violation.Violation, count)
	for i := range drafts {
		drafts[i] = generator.Sample(p.rnd)
	}
	p.mu.Unlock()

	ids := make([]int64, 0, count)
	for _, d := range drafts {
		added := p.store.Add(d)
		ids = append(ids, added.ID)
	}
	p.update(id, func(j *Job) {
		j.Status = StatusComplete
		j.Progress = 100
		j.ViolationIDs = ids
	})

	p.uploadReport(id)
	p.log.Info().Str("job", id).Ints64("violations", ids).Msg("upload analysis complete")
}

// uploadReport pushes the job summary to evidence storage. Best-effort.
func (p *Pipeline) uploadReport(id string) {
	job, ok := p.Job(id)
	if !ok || p.uploader == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	key := fmt.Sprintf("uploads/%s/report.json", id)
	if err := p.uploader.Upload(key, "application/json", data); err != nil {
		p.log.Warn().Err(err).Str("job", id).Msg("evidence report upload failed")
	}
}

func (p *Pipeline) update(id string, fn func(*Job)) {
	p.mu.Lock()
	if job, ok := p.jobs[id]; ok {
		fn(job)
	}
	p.mu.Unlock()
}

func newJobID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "upl_" + hex.EncodeToString(b)
}
