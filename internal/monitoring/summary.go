package monitoring

import (
	"sort"
	"sync"
	"time"
)

// Summary lists the last known state of every background job.
type Summary struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Jobs        []JobStatus `json:"jobs"`
}

// JobStatus is the rolling record for one maintenance job.
type JobStatus struct {
	Name          string        `json:"name"`
	LastResult    string        `json:"last_result"`
	LastError     string        `json:"last_error,omitempty"`
	LastRunAt     time.Time     `json:"last_run_at"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastDuration  time.Duration `json:"last_duration"`
	FailStreak    int           `json:"fail_streak"`
	Runs          int           `json:"runs"`
	Purged        int64         `json:"purged"`
}

// Failing reports whether the latest run did not succeed.
func (j JobStatus) Failing() bool { return j.FailStreak > 0 }

// StaleAt reports whether the job has not run within maxAge of now.
func (j JobStatus) StaleAt(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && !j.LastRunAt.IsZero() && now.Sub(j.LastRunAt) > maxAge
}

// Snapshot summarises the process-wide module, if one is set.
func Snapshot() Summary {
	return CurrentModule().Summary()
}

type jobLedger struct {
	mu   sync.Mutex
	jobs map[string]*JobStatus
}

func newJobLedger() *jobLedger {
	return &jobLedger{jobs: make(map[string]*JobStatus)}
}

func (l *jobLedger) record(job, result, message string, purged int64, duration time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.jobs[job]
	if !ok {
		entry = &JobStatus{Name: job}
		l.jobs[job] = entry
	}
	entry.Runs++
	entry.LastResult = result
	entry.LastError = message
	entry.LastRunAt = now
	entry.LastDuration = max(duration, 0)
	if purged > 0 {
		entry.Purged += purged
	}
	if result == "success" {
		entry.FailStreak = 0
		entry.LastSuccessAt = now
	} else {
		entry.FailStreak++
	}
}

func (l *jobLedger) summary() Summary {
	out := Summary{GeneratedAt: time.Now(), Jobs: []JobStatus{}}
	if l == nil {
		return out
	}

	l.mu.Lock()
	for _, entry := range l.jobs {
		out.Jobs = append(out.Jobs, *entry)
	}
	l.mu.Unlock()

	sort.Slice(out.Jobs, func(i, j int) bool { return out.Jobs[i].Name < out.Jobs[j].Name })
	return out
}
