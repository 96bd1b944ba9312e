package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SettlementRunner is the slice of the settlement application service the
// trigger drives
type SettlementRunner interface {
	// GenerateSettlementsForPeriod generates the period's settlement for every
	// store that had escrow activity
	GenerateSettlementsForPeriod(ctx context.Context, year, month int) (generated, failed int, err error)
}

// SettlementCronTriggerConfig holds configuration for the settlement trigger
type SettlementCronTriggerConfig struct {
	// RunHour is the hour on the first day of the month when the previous
	// month is settled, in 24h format
	RunHour int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// JobTimeout bounds a single generation run
	JobTimeout time.Duration
}

// DefaultSettlementCronTriggerConfig returns default settlement trigger configuration
func DefaultSettlementCronTriggerConfig() SettlementCronTriggerConfig {
	return SettlementCronTriggerConfig{
		RunHour:       7,
		CheckInterval: time.Minute,
		JobTimeout:    30 * time.Minute,
	}
}

// SettlementCronTrigger generates monthly settlements on the first day of
// each month for the month that just ended
type SettlementCronTrigger struct {
	config SettlementCronTriggerConfig
	runner SettlementRunner
	logger *zap.Logger

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	lastRunPeriod string
}

// NewSettlementCronTrigger creates a new settlement cron trigger
func NewSettlementCronTrigger(config SettlementCronTriggerConfig, runner SettlementRunner, logger *zap.Logger) *SettlementCronTrigger {
	return &SettlementCronTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the trigger loop
func (c *SettlementCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("settlement trigger started",
		zap.Int("run_hour", c.config.RunHour),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger and waits for an in-flight run
func (c *SettlementCronTrigger) Stop(ctx context.Context) error {
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
		c.logger.Info("settlement trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SettlementCronTrigger) runLoop(ctx context.Context) {
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

func (c *SettlementCronTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	if now.Day() != 1 || now.Hour() != c.config.RunHour || now.Minute() != 0 {
		return
	}

	// Settle the month that just ended
	previous := now.AddDate(0, -1, 0)
	period := fmt.Sprintf("%04d-%02d", previous.Year(), int(previous.Month()))

	c.mu.Lock()
	alreadyRan := c.lastRunPeriod == period
	if !alreadyRan {
		c.lastRunPeriod = period
	}
	c.mu.Unlock()
	if alreadyRan {
		return
	}

	c.generate(ctx, previous.Year(), int(previous.Month()))
}

func (c *SettlementCronTrigger) generate(ctx context.Context, year, month int) {
	runCtx, cancel := context.WithTimeout(ctx, c.config.JobTimeout)
	defer cancel()

	c.logger.Info("generating monthly settlements",
		zap.Int("year", year),
		zap.Int("month", month),
	)
	generated, failed, err := c.runner.GenerateSettlementsForPeriod(runCtx, year, month)
	if err != nil {
		c.logger.Error("settlement generation run failed",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("settlement generation run finished",
		zap.Int("generated", generated),
		zap.Int("failed", failed),
	)
}

// TriggerManualRun generates settlements for an explicit period, outside the
// schedule. Used by operational tooling.
func (c *SettlementCronTrigger) TriggerManualRun(ctx context.Context, year, month int) {
	c.generate(ctx, year, month)
}
