package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/api/metrics"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ImageDeleter is the subset of ports.ImageStore the dispatcher needs.
type ImageDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Dispatcher removes images of deleted feedback records off the request
// path. Tasks are routed to a fixed set of workers by hashing the feedback
// id, so work for one record is always handled in order by one worker.
type Dispatcher struct {
	workers []chan ports.ImageCleanupTask
	images  ImageDeleter
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, images ImageDeleter, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ImageCleanupTask, numWorkers),
		images:  images,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ImageCleanupTask, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a task to the worker responsible for its feedback id.
// When that worker's buffer is full the task is dropped and logged; the
// object becomes an orphan in the bucket rather than stalling the request.
func (d *Dispatcher) Enqueue(task ports.ImageCleanupTask) {
	if task.ImageKey == "" {
		return
	}
	idx := d.shardIndex(task.FeedbackID)
	select {
	case d.workers[idx] <- task:
		metrics.ImageCleanupQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ImageCleanupTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("feedback_id", task.FeedbackID).
			Str("image_key", task.ImageKey).
			Int("worker_id", idx).
			Msg("image cleanup queue full, task dropped")
	}
}

// shardIndex maps a feedback id deterministically to a worker index.
func (d *Dispatcher) shardIndex(feedbackID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feedbackID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ImageCleanupTask) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-ch:
			if !ok {
				return
			}
			metrics.ImageCleanupQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.images.Delete(ctx, task.ImageKey); err != nil {
				metrics.ImageCleanupTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("feedback_id", task.FeedbackID).
					Str("image_key", task.ImageKey).
					Int("worker_id", id).
					Msg("image cleanup failed")
				continue
			}
			metrics.ImageCleanupTotal.WithLabelValues("deleted").Inc()
		}
	}
}
