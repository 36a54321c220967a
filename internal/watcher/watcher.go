package watcher

import (
	"context"
	"log"
	"time"

	"github.com/kairocrm/ingest/internal/service"
)

const maxConsecutiveErrors = 5

// BatchScheduler is the slice of the sync scheduler the watcher drives
type BatchScheduler interface {
	ProcessBatch(ctx context.Context, batchSize int) (service.BatchResult, error)
}

// Watcher runs the sync scheduler on an internal timer, for deployments
// without an external cron hitting the HTTP trigger.
type Watcher struct {
	scheduler BatchScheduler
	interval  time.Duration
	batchSize int
}

func New(scheduler BatchScheduler, interval time.Duration, batchSize int) *Watcher {
	return &Watcher{
		scheduler: scheduler,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start polls until the context is cancelled. Repeated failures back off
// rather than hammering a broken dependency.
func (w *Watcher) Start(ctx context.Context) error {
	log.Printf("Starting sync watcher (interval: %s, batch size: %d)", w.interval, w.batchSize)

	// Run once at startup to pick up anything left over from previous runs
	consecutiveErrors := 0
	w.runOnce(ctx, &consecutiveErrors)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync watcher shutting down...")
			return ctx.Err()
		case <-ticker.C:
			if consecutiveErrors >= maxConsecutiveErrors {
				log.Printf("Too many consecutive errors (%d), backing off 60s", consecutiveErrors)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(60 * time.Second):
				}
				consecutiveErrors = 0
			}
			w.runOnce(ctx, &consecutiveErrors)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, consecutiveErrors *int) {
	result, err := w.scheduler.ProcessBatch(ctx, w.batchSize)
	if err != nil {
		*consecutiveErrors++
		log.Printf("Error processing sync batch (#%d): %v", *consecutiveErrors, err)
		return
	}
	*consecutiveErrors = 0
	if result.Attempted > 0 {
		log.Printf("Watcher batch: attempted=%d succeeded=%d failed=%d",
			result.Attempted, result.Succeeded, result.Failed)
	}
}
