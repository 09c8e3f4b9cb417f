package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job описывает периодическую задачу планировщика.
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	run  Job
}

// Scheduler запускает именованные задачи с фиксированным интервалом.
type Scheduler struct {
	interval time.Duration
	log      *slog.Logger
	jobs     []namedJob
	wg       sync.WaitGroup
}

// NewScheduler создает планировщик с интервалом и логгером ошибок задач.
func NewScheduler(interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{interval: interval, log: log}
}

// Add регистрирует задачу под именем для диагностики.
func (s *Scheduler) Add(name string, job Job) {
	s.jobs = append(s.jobs, namedJob{name: name, run: job})
}

// Start блокируется до отмены контекста, запуская задачи по тикам.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			s.wg.Wait()
			return
		case <-ticker.C:
			for _, job := range s.jobs {
				job := job
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					if err := job.run(ctx); err != nil && ctx.Err() == nil {
						s.log.Error("scheduled job failed", "job", job.name, "err", err)
					}
				}()
			}
		}
	}
}
