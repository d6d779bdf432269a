package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type NotifyFunc func(data any)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs a single task on a cron schedule. It backs the
// periodic state flush and the sampler file truncation pass.
type Scheduler struct {
	OnError NotifyFunc // called on task error
	Task    TaskFunc   // task callback

	parser cron.Parser

	schedule cron.Schedule
	nextRun  time.Time

	mu      sync.Mutex
	running bool

	controlCh chan controlMsg
	stopCh    chan struct{}
}

// internal control kinds (not user visible events)
type controlKind int

const (
	ctrlRecalculate controlKind = iota // timer needs recalculation due to schedule change
	ctrlSkip                           // next run skipped
)

type controlMsg struct {
	kind controlKind
	data any
}

func NewScheduler(task TaskFunc, onError NotifyFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	s := &Scheduler{
		OnError:   onError,
		Task:      task,
		parser:    cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		controlCh: make(chan controlMsg, 4),
		stopCh:    make(chan struct{}),
	}
	return s
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

func (s *Scheduler) Schedule(cronExpr string) error {
	sh, err := s.parser.Parse(cronExpr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	running := s.running
	if !running {
		s.schedule = sh
		s.nextRun = sh.Next(time.Now())
	}
	s.mu.Unlock()

	if running {
		s.trySendControl(ctrlRecalculate, sh)
	}
	return nil
}

// Skip skips the next scheduled run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to skip")
	}
	next := s.schedule.Next(s.nextRun)
	if !s.running {
		s.nextRun = next
		s.mu.Unlock()
		return nil
	}
	s.nextRun = next
	s.mu.Unlock()
	s.trySendControl(ctrlSkip, nil)
	return nil
}

func (s *Scheduler) Status() (nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextRun = s.nextRun
	running = s.running
	return
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		schedule, nextRun := s.snapshot()
		var timer *time.Timer
		if schedule == nil || nextRun.IsZero() {
			timer = time.NewTimer(time.Hour * 10000)
		} else {
			wait := time.Until(nextRun)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
		}

		for {
			select {
			case <-timer.C:
				if schedule == nil || nextRun.IsZero() {
					break
				}

				logrus.Debugf("running scheduled task at %s", nextRun.Format(time.DateTime))

				timer.Stop()

				go func() {
					if err := s.Task(); err != nil {
						s.sendError(fmt.Errorf("task failed: %v", err))
					}
				}()
				s.advanceNextRun()
			case <-s.stopCh:
				timer.Stop()
				s.mu.Lock()
				s.running = false
				s.mu.Unlock()
				return
			case msg := <-s.controlCh: // internal control messages
				logrus.WithFields(logrus.Fields{
					"kind": msg.kind,
					"data": msg.data,
				}).Debug("received control msg")

				switch msg.kind {
				case ctrlRecalculate:
					timer.Stop()
					sh := msg.data.(cron.Schedule)
					s.mu.Lock()
					s.schedule = sh
					s.nextRun = sh.Next(time.Now())
					s.mu.Unlock()
				case ctrlSkip:
					timer.Stop()
				}
			}

			break
		}
	}
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	s.nextRun = s.schedule.Next(s.nextRun)
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}

func (s *Scheduler) trySendControl(kind controlKind, data any) {
	select {
	case s.controlCh <- controlMsg{kind: kind, data: data}:
	default:
	}
}
