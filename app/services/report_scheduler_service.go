package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReportSchedulerService exports the daily report once a day at a fixed time
type ReportSchedulerService struct {
	sheets   *GoogleSheetsService
	syncTime string
	logger   *LoggerService
	now      func() time.Time

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
	nextRun  time.Time
}

// NewReportSchedulerService creates a scheduler firing at syncTime ("HH:MM")
func NewReportSchedulerService(sheets *GoogleSheetsService, syncTime string, logger *LoggerService) *ReportSchedulerService {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &ReportSchedulerService{
		sheets:   sheets,
		syncTime: syncTime,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduler. It is a no-op when the export is disabled.
func (s *ReportSchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.sheets == nil || !s.sheets.Enabled() {
		s.logger.LogInfo("Google Sheets auto-sync is disabled")
		return nil
	}
	s.running = true
	s.stopChan = make(chan struct{})
	go s.run(s.stopChan)
	s.logger.LogInfo("Report scheduler started", "sync_time="+s.syncTime)
	return nil
}

// Stop stops the scheduler
func (s *ReportSchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
	s.logger.LogInfo("Report scheduler stopped")
}

func (s *ReportSchedulerService) run(stop <-chan struct{}) {
	defer s.logger.RecoverPanic()

	for {
		now := s.now()
		wait := timeUntilDailySync(now, s.syncTime)
		s.mu.Lock()
		s.nextRun = now.Add(wait)
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			day := reportDay(s.now())
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := s.sheets.SyncDay(ctx, day); err != nil {
				s.logger.LogWarning("Scheduled sync failed", err.Error())
			}
			cancel()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// timeUntilDailySync is the wait until the next HH:MM after now.
// An invalid time falls back to 23:00.
func timeUntilDailySync(now time.Time, syncTime string) time.Duration {
	targetTime, err := time.Parse("15:04", syncTime)
	if err != nil {
		targetTime, _ = time.Parse("15:04", "23:00")
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), targetTime.Hour(), targetTime.Minute(), 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(now)
}

// reportDay is the business day a sync at t closes: the same day in the
// evening, the previous one after midnight.
func reportDay(t time.Time) time.Time {
	if t.Hour() < 12 {
		return t.AddDate(0, 0, -1)
	}
	return t
}

// GetStatus returns the scheduler and export status
func (s *ReportSchedulerService) GetStatus() map[string]interface{} {
	s.mu.Lock()
	status := map[string]interface{}{
		"running":   s.running,
		"sync_time": s.syncTime,
	}
	if s.running {
		status["next_run"] = s.nextRun
	}
	s.mu.Unlock()

	if s.sheets != nil {
		status["enabled"] = s.sheets.Enabled()
		status["sheets"] = s.sheets.Status()
	}
	return status
}
