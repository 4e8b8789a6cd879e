/*
scheduler.go - Background retry of completion notifications

PURPOSE:
  A completion mail is only retried when another Attested event arrives.
  If the relay was down when the last employee attested, nobody would
  attest again, so the scheduler re-checks the latest package on a timer.

DESIGN:
  - One goroutine, one ticker, checks once immediately on Start
  - Each check has its own timeout so a hung relay cannot stall Stop
  - Errors are logged; the next tick tries again

USAGE:
  scheduler := attest.NewCompletionScheduler(service, logger)
  scheduler.Start()
  defer scheduler.Stop()
*/
package attest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CompletionScheduler periodically calls Service.RetryCompletion.
type CompletionScheduler struct {
	Service       *Service
	CheckInterval time.Duration
	CheckTimeout  time.Duration
	Enabled       bool

	logger zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCompletionScheduler checks every 15 minutes.
func NewCompletionScheduler(service *Service, logger zerolog.Logger) *CompletionScheduler {
	return &CompletionScheduler{
		Service:       service,
		CheckInterval: 15 * time.Minute,
		CheckTimeout:  time.Minute,
		Enabled:       true,
		logger:        logger.With().Str("component", "completion-scheduler").Logger(),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (cs *CompletionScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.logger.Info().Msg("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}
	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)
	go cs.run(cs.ticker, cs.stop)

	cs.logger.Info().Dur("interval", cs.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (cs *CompletionScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker == nil {
		return
	}
	cs.ticker.Stop()
	close(cs.stop)
	cs.wg.Wait()
	cs.ticker = nil
	cs.logger.Info().Msg("stopped")
}

func (cs *CompletionScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cs.wg.Done()

	cs.check()
	for {
		select {
		case <-ticker.C:
			cs.check()
		case <-stop:
			return
		}
	}
}

func (cs *CompletionScheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), cs.CheckTimeout)
	defer cancel()

	if err := cs.Service.RetryCompletion(ctx); err != nil {
		cs.logger.Error().Err(err).Msg("completion retry failed")
	}
}
