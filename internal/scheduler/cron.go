package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneCron — расписание PruneData по умолчанию.
const DefaultPruneCron = "*/5 * * * *"

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// NextRun вычисляет следующее время запуска по cron-выражению.
func NextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from).UTC(), nil
}

// StartPruneCron запускает PruneData по расписанию cronExpr.
// Cron останавливается при отмене ctx; возвращённый *cron.Cron можно
// остановить и раньше.
func (s *Scheduler) StartPruneCron(ctx context.Context, cronExpr string) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(cronExpr, func() {
		if !s.PruneData(ctx) {
			s.logger.Warn("scheduled prune failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	next, err := NextRun(cronExpr, s.now())
	if err != nil {
		return nil, err
	}

	c.Start()
	s.logger.Info("prune cron started", "cron", cronExpr, "next_run", next)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	return c, nil
}
