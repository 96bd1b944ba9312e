// Package scheduler runs the periodic funds-administration jobs. Triggers
// are ticker-based stand-ins for an external scheduler: they check wall-clock
// time on an interval and deduplicate runs per day or per period.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PayoutRunner is the slice of the payout application service the trigger drives
type PayoutRunner interface {
	// ProcessDuePayouts executes all payouts whose scheduled date has arrived
	ProcessDuePayouts(ctx context.Context) (processed, failed int, err error)
	// RetryFailedPayouts re-attempts failed payouts that are due a retry
	RetryFailedPayouts(ctx context.Context) (retried, failed int, err error)
	// RecoverStalledPayouts fails payouts stuck in Processing since before
	// the cutoff back into the retry path
	RecoverStalledPayouts(ctx context.Context, olderThan time.Duration) (recovered, failed int, err error)
}

// PayoutCronTriggerConfig holds configuration for the payout trigger
type PayoutCronTriggerConfig struct {
	// RunHour and RunMinute set the daily processing time in 24h format
	RunHour   int
	RunMinute int

	// RetryInterval is how often failed payouts are checked for retry
	RetryInterval time.Duration

	// StalledAfter is how long a payout may sit in Processing before the
	// retry loop treats its transfer attempt as interrupted
	StalledAfter time.Duration

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// JobTimeout bounds a single run
	JobTimeout time.Duration
}

// DefaultPayoutCronTriggerConfig returns default payout trigger configuration
func DefaultPayoutCronTriggerConfig() PayoutCronTriggerConfig {
	return PayoutCronTriggerConfig{
		RunHour:       6,
		RunMinute:     0,
		RetryInterval: time.Hour,
		StalledAfter:  30 * time.Minute,
		CheckInterval: time.Minute,
		JobTimeout:    10 * time.Minute,
	}
}

// PayoutCronTrigger drives daily payout processing and the retry loop
type PayoutCronTrigger struct {
	config PayoutCronTriggerConfig
	runner PayoutRunner
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewPayoutCronTrigger creates a new payout cron trigger
func NewPayoutCronTrigger(config PayoutCronTriggerConfig, runner PayoutRunner, logger *zap.Logger) *PayoutCronTrigger {
	return &PayoutCronTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the trigger loops
func (c *PayoutCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(2)
	go c.dailyLoop(ctx)
	go c.retryLoop(ctx)

	c.logger.Info("payout trigger started",
		zap.Int("run_hour", c.config.RunHour),
		zap.Int("run_minute", c.config.RunMinute),
		zap.Duration("retry_interval", c.config.RetryInterval),
	)
	return nil
}

// Stop stops the trigger and waits for in-flight runs
func (c *PayoutCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("payout trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PayoutCronTrigger) dailyLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

func (c *PayoutCronTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	alreadyRan := c.lastRunDate == currentDate
	c.mu.Unlock()
	if alreadyRan {
		return
	}

	if now.Hour() != c.config.RunHour || now.Minute() != c.config.RunMinute {
		return
	}

	c.mu.Lock()
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.runDue(ctx)
}

func (c *PayoutCronTrigger) runDue(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, c.config.JobTimeout)
	defer cancel()

	c.logger.Info("processing due payouts")
	processed, failed, err := c.runner.ProcessDuePayouts(runCtx)
	if err != nil {
		c.logger.Error("due payout run failed", zap.Error(err))
		return
	}
	c.logger.Info("due payout run finished",
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)
}

func (c *PayoutCronTrigger) retryLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runRetries(ctx)
		}
	}
}

func (c *PayoutCronTrigger) runRetries(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, c.config.JobTimeout)
	defer cancel()

	recovered, recoverFailed, err := c.runner.RecoverStalledPayouts(runCtx, c.config.StalledAfter)
	if err != nil {
		c.logger.Error("stalled payout sweep failed", zap.Error(err))
	} else if recovered > 0 || recoverFailed > 0 {
		c.logger.Info("stalled payout sweep finished",
			zap.Int("recovered", recovered),
			zap.Int("failed", recoverFailed),
		)
	}

	retried, failed, err := c.runner.RetryFailedPayouts(runCtx)
	if err != nil {
		c.logger.Error("payout retry run failed", zap.Error(err))
		return
	}
	if retried > 0 || failed > 0 {
		c.logger.Info("payout retry run finished",
			zap.Int("retried", retried),
			zap.Int("failed", failed),
		)
	}
}

// TriggerManualRun runs due payout processing immediately, outside the
// schedule. Used by operational tooling.
func (c *PayoutCronTrigger) TriggerManualRun(ctx context.Context) {
	c.runDue(ctx)
}
