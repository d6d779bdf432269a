package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestCronParse(t *testing.T) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse("@every 5m")
	if err != nil {
		t.Fatalf("failed to parse cron expression: %v", err)
	}

	now := time.Now()
	next1 := schedule.Next(now)
	next2 := schedule.Next(next1)

	if !next2.After(next1) {
		t.Fatalf("expected next2 to be after next1, got next1=%v next2=%v", next1, next2)
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)

	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	next, running := s.Status()
	if running {
		t.Fatalf("scheduler should not be running")
	}
	if next.IsZero() {
		t.Fatalf("next run should be set after scheduling")
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	orig, _ := s.Status()
	if orig.IsZero() {
		t.Fatalf("expected next run after scheduling")
	}

	s.Start()
	defer s.Stop()

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}
	skipped, _ := s.Status()
	if !skipped.After(orig) {
		t.Fatalf("expected skip to move schedule forward, got %v <= %v", skipped, orig)
	}
}

func TestSchedulerRunCycle(t *testing.T) {
	taskCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	task := func() error {
		select {
		case taskCh <- struct{}{}:
		default:
		}
		return errors.New("flush failed")
	}

	onError := func(data any) {
		if err, ok := data.(error); ok {
			select {
			case errCh <- err:
			default:
			}
		}
	}

	s := NewScheduler(task, onError)
	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-taskCh:
	case <-time.After(3 * time.Second):
		t.Fatalf("task did not run")
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected non-nil task error")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("task error was not reported")
	}
}

func TestSchedulerSkipWithoutSchedule(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Skip(); err == nil {
		t.Fatalf("expected error when skipping without a schedule")
	}
}
