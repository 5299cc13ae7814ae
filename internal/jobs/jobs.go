package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

type Result struct {
	Points   int     `json:"points"`
	Rows     int     `json:"rows"`
	Meters   float64 `json:"meters"`
	Output   string  `json:"output"`   // Full path
	Filename string  `json:"filename"` // Just filename for download
}

type Job struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	status   Status
	logs     []string
	progress int // 0-100
	result   *Result
	err      string
	cancel   context.CancelFunc
}

// Snapshot is a consistent copy of a job's state.
type Snapshot struct {
	ID       string   `json:"job_id"`
	Status   Status   `json:"status"`
	Logs     []string `json:"logs"`
	Progress int      `json:"progress"`
	Result   *Result  `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (j *Job) Log(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLog(time.Now(), msg)
}

func (j *Job) appendLog(ts time.Time, msg string) {
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), msg))
}

func (j *Job) SetProgress(current, total int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.progress = int(float64(current) / float64(total) * 100)
	}
	if msg != "" {
		j.appendLog(time.Now(), msg)
	}
}

// Fail records err as the job's outcome. Context cancellation marks the job
// canceled rather than failed.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return
	}
	j.status = StatusError
	if errors.Is(err, context.Canceled) {
		j.status = StatusCanceled
	}
	j.err = err.Error()
	j.logs = append(j.logs, "[ERROR] "+j.err)
	j.cancel()
}

func (j *Job) Finish(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return
	}
	j.status = StatusDone
	j.result = res
	j.progress = 100
	j.appendLog(time.Now(), "Job completed successfully.")
	j.cancel()
}

// Cancel asks a running job to stop. It returns false if the job already ended.
func (j *Job) Cancel() bool {
	j.mu.RLock()
	running := j.status == StatusRunning
	j.mu.RUnlock()
	if running {
		j.cancel()
	}
	return running
}

func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	return Snapshot{
		ID:       j.ID,
		Status:   j.status,
		Logs:     logs,
		Progress: j.progress,
		Result:   j.result,
		Error:    j.err,
	}
}

// Logger returns a logger whose entries land in the job log. Entries are
// also forwarded to base, tagged with the job id, when base is not nil.
func (j *Job) Logger(base *log.Logger) log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(log.InfoLevel)
	logger.AddHook(&jobHook{job: j, base: base})
	return logger.WithField("job", j.ID)
}

type jobHook struct {
	job  *Job
	base *log.Logger
}

func (h *jobHook) Levels() []log.Level { return log.AllLevels }

func (h *jobHook) Fire(entry *log.Entry) error {
	msg := entry.Message
	if entry.Level <= log.WarnLevel {
		msg = fmt.Sprintf("[%s] %s", entry.Level, msg)
	}
	h.job.mu.Lock()
	h.job.appendLog(entry.Time, msg)
	h.job.mu.Unlock()

	if h.base != nil {
		h.base.WithFields(entry.Data).Log(entry.Level, entry.Message)
	}
	return nil
}

type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// New registers a running job. The returned context is canceled when the
// job ends or is canceled.
func (s *Store) New(parent context.Context) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		status:    StatusRunning,
		logs:      []string{},
		cancel:    cancel,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job, ctx
}

func (s *Store) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// Prune drops finished jobs created before cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) && job.Status() != StatusRunning {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
