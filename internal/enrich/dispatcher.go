package enrich

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"reddot-watch/newswire/internal/models"
)

// Dispatcher runs enrichment passes in the background, one at a time.
type Dispatcher struct {
	enricher *Enricher
	busy     atomic.Bool
	wg       conc.WaitGroup
}

// NewDispatcher creates a dispatcher for e.
func NewDispatcher(e *Enricher) *Dispatcher {
	return &Dispatcher{enricher: e}
}

// Dispatch starts a detached pass over items and hands the result to done.
// The pass outlives ctx's cancellation. It returns false without starting
// anything while an earlier pass is still running.
func (d *Dispatcher) Dispatch(ctx context.Context, items []models.NewsItem, done func([]models.NewsItem)) bool {
	if !d.busy.CompareAndSwap(false, true) {
		log.Debug().Msg("Image enrichment already running, skipping")
		return false
	}

	detached := context.WithoutCancel(ctx)
	d.wg.Go(func() {
		defer d.busy.Store(false)
		enriched := d.enricher.Enrich(detached, items)
		if done != nil {
			done(enriched)
		}
	})
	return true
}

// Busy reports whether a pass is running.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Wait blocks until dispatched passes have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
