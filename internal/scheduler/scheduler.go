package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"CoinForecast/internal/model"
	"CoinForecast/internal/notifier"
	"CoinForecast/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// Scheduler regenerates forecasts on a cron schedule and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Notifier *notifier.TelegramNotifier // nil disables notifications
	Ctx      context.Context

	runMu  sync.Mutex // one run at a time
	mu     sync.RWMutex
	latest *model.RunResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, tn *notifier.TelegramNotifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
		Notifier: tn,
		Ctx:      ctx,
	}
}

// Register adds the forecast job on the given six-field cron expression.
func (s *Scheduler) Register(forecastCron string) error {
	if _, err := s.Cron.AddFunc(forecastCron, s.forecastTask); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the pipeline immediately and keeps the result as the latest run.
func (s *Scheduler) RunNow() (*model.RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res, err := s.Pipeline.Run(s.Ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
	return res, nil
}

// Latest returns the most recent successful run, or nil before the first one.
func (s *Scheduler) Latest() *model.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Scheduler) forecastTask() {
	log.Println("[INFO] running forecast task")
	res, err := s.RunNow()
	if err != nil {
		log.Printf("[ERROR] forecast task: %v", err)
		s.trySend(fmt.Sprintf("❌ forecast run failed: %v", err))
		return
	}
	s.trySend(notifier.FormatRunSummary(res))
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/forecast":
		res, err := s.RunNow()
		if err != nil {
			return fmt.Sprintf("❌ forecast run failed: %v", err)
		}
		return notifier.FormatRunSummary(res)
	case "/price":
		res := s.Latest()
		if res == nil {
			return "No forecast has run yet. Send /forecast to start one."
		}
		return notifier.FormatQuote(res.Quote, res.FinishedAt)
	default:
		return "Available commands:\n• /forecast - regenerate predictions now\n• /price - last anchor price"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
