// README: Daily batch that advances reservations from calendar dates (abandon, start, finish).
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"petcare/internal/types"
)

var ErrRunInProgress = fmt.Errorf("scheduler run already in progress: %w", types.ErrConflict)

// RunLock guards a run across processes. TryLock reports false when another
// holder owns the lock; release must be called once on success.
type RunLock interface {
	TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type SchedulerConfig struct {
	Hour     int
	Minute   int
	Location *time.Location
	Clock    types.Clock
	Lock     RunLock
	Logger   *slog.Logger
}

type Scheduler struct {
	svc    *Service
	store  ReservationStore
	hour   int
	minute int
	loc    *time.Location
	clock  types.Clock
	lock   RunLock
	logger *slog.Logger

	run     sync.Mutex
	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

type StepReport struct {
	Step        string `json:"step"`
	Matched     int    `json:"matched"`
	Transitions int    `json:"transitions"`
	Failures    int    `json:"failures"`
}

type RunReport struct {
	Day     string       `json:"day"`
	Skipped bool         `json:"skipped"`
	Steps   []StepReport `json:"steps"`
}

type step struct {
	name   string
	status Status
	field  DateField
	event  Event
}

var steps = []step{
	{name: "abandon", status: StatusWaitingAcceptance, field: FieldStartDate, event: EventAbandon},
	{name: "start", status: StatusConfirmed, field: FieldStartDate, event: EventStart},
	{name: "finish", status: StatusStarted, field: FieldEndDate, event: EventFinish},
}

func NewScheduler(svc *Service, cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = svc.loc
	}
	if cfg.Clock == nil {
		cfg.Clock = svc.clock
	}
	if cfg.Logger == nil {
		cfg.Logger = svc.logger
	}
	return &Scheduler{
		svc:    svc,
		store:  svc.store,
		hour:   cfg.Hour,
		minute: cfg.Minute,
		loc:    cfg.Location,
		clock:  cfg.Clock,
		lock:   cfg.Lock,
		logger: cfg.Logger,
	}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start launches the daily loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.loop(ctx, s.stop, s.stopped)
	s.logger.Info("scheduler started", "at", fmt.Sprintf("%02d:%02d", s.hour, s.minute), "tz", s.loc.String())
}

// Stop ends the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		now := s.clock.Now()
		wait := NextRun(now, s.hour, s.minute, s.loc).Sub(now)
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-s.clock.After(wait):
		}
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("scheduler run failed", "err", err)
		}
	}
}

// RunOnce executes the three steps for the current day. Overlapping runs in
// this process fail with ErrRunInProgress; a run held by another process is
// reported as skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (RunReport, error) {
	if !s.run.TryLock() {
		return RunReport{}, ErrRunInProgress
	}
	defer s.run.Unlock()

	now := s.clock.Now()
	from, to := types.DayWindow(now, s.loc)
	report := RunReport{Day: from.Format(time.DateOnly)}

	if s.lock != nil {
		release, ok, err := s.lock.TryLock(ctx)
		if err != nil {
			return report, err
		}
		if !ok {
			report.Skipped = true
			s.logger.Info("scheduler run skipped; lock held elsewhere", "day", report.Day)
			return report, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("scheduler lock release failed", "day", report.Day, "err", err)
			}
		}()
	}

	for _, st := range steps {
		report.Steps = append(report.Steps, s.runStep(ctx, st, from, to))
	}
	return report, nil
}

func (s *Scheduler) runStep(ctx context.Context, st step, from, to time.Time) StepReport {
	rep := StepReport{Step: st.name}
	due, err := s.store.ListDue(ctx, st.status, st.field, from, to)
	if err != nil {
		rep.Failures++
		s.logger.Error("scheduler scan failed", "step", st.name, "err", err)
		return rep
	}
	rep.Matched = len(due)
	for i := range due {
		r := due[i]
		if _, err := s.svc.apply(ctx, &r, st.event, SystemActor); err != nil {
			rep.Failures++
			s.logger.Warn("scheduler transition failed", "step", st.name, "reservation_id", r.ID, "err", err)
			continue
		}
		rep.Transitions++
	}
	s.logger.Info("scheduler step done",
		"step", st.name,
		"matched", rep.Matched,
		"transitions", rep.Transitions,
		"failures", rep.Failures,
	)
	return rep
}
