// Package stbqueue gives each set-top box a dedicated FIFO worker so
// commands to one box never interleave or block commands to another (C4
// in the component design). Generalizes internal/workerpool's
// single-queue goroutine-pool shape down to one worker per STB, adding
// the bounded-retry contract spec.md §4.4 requires.
package stbqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/mverr"
	"github.com/sweeks/multiviewer/internal/stbclient"
)

var log = logging.L("stbqueue")

// Job is a zero-arg unit of work enqueued against one STB's client.
type Job func(c *stbclient.Client) error

// maxAttempts is the total number of tries (1 initial + 1 retry) spec.md
// §4.4 allows a job before it's dropped.
const maxAttempts = 2

// Queue is a FIFO of jobs for one STB, drained by a single goroutine so
// commands to that box are always delivered in order, one at a time.
type Queue struct {
	client *stbclient.Client

	jobs chan namedJob
	wg   sync.WaitGroup

	closeOnce sync.Once
	done      chan struct{}

	inScreensaver atomic.Bool
}

type namedJob struct {
	job   Job
	label string
}

// screensaverLabel marks the enqueue that most recently set InScreensaver
// true; any other label clears it once that job runs.
const screensaverLabel = "screensaver"

// New starts a queue worker for client with room for queueSize pending
// jobs.
func New(client *stbclient.Client, queueSize int) *Queue {
	if queueSize < 1 {
		queueSize = 1
	}
	q := &Queue{
		client: client,
		jobs:   make(chan namedJob, queueSize),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue never blocks: if the queue is full the job is dropped and
// logged, matching the original's intentionally-unbounded asyncio.Queue
// only up to this implementation's bounded buffer (spec.md §5 requires
// bounded queues everywhere; an unbounded STB queue is not a real
// requirement, since a human can only press buttons so fast).
func (q *Queue) Enqueue(label string, job Job) {
	select {
	case <-q.done:
		log.Warn("stb queue closed, dropping job", "tv", q.client.TV, "label", label)
		return
	default:
	}
	q.wg.Add(1)
	select {
	case q.jobs <- namedJob{job: job, label: label}:
	default:
		q.wg.Done()
		log.Warn("stb queue full, dropping job", "tv", q.client.TV, "label", label)
	}
}

// Synced awaits drain of every job enqueued so far.
func (q *Queue) Synced(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InScreensaver reports whether the most recently completed job was a
// screensaver enqueue.
func (q *Queue) InScreensaver() bool { return q.inScreensaver.Load() }

// Close stops accepting new work and lets the in-flight job finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *Queue) run() {
	for {
		select {
		case nj := <-q.jobs:
			q.runWithRetry(nj)
		case <-q.done:
			return
		}
	}
}

// runWithRetry executes a job up to maxAttempts times, closing (and thus
// forcing a reconnect of) the STB client between attempts — spec.md §4.4:
// "on exception, log and close() the STB client, then retry once; on
// second failure, drop."
func (q *Queue) runWithRetry(nj namedJob) {
	defer q.wg.Done()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := nj.job(q.client)
		if err == nil {
			q.inScreensaver.Store(nj.label == screensaverLabel)
			return
		}
		lastErr = err
		log.Warn("stb job failed", "tv", q.client.TV, "label", nj.label, "attempt", attempt, logging.KeyError, err)
		if closeErr := q.client.Close(); closeErr != nil {
			log.Warn("stb client close failed", "tv", q.client.TV, logging.KeyError, closeErr)
		}
	}
	log.Error("stb job dropped after exhausting retries", "tv", q.client.TV, "label", nj.label,
		logging.KeyError, &mverr.JobFailure{Attempts: maxAttempts, Err: lastErr})
}
