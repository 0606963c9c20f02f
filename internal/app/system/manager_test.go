package system

import (
	"context"
	"errors"
	"testing"
)

type recordedService struct {
	name    string
	events  *[]string
	failSt  bool
	stopped bool
}

func (s *recordedService) Name() string { return s.name }

func (s *recordedService) Start(context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	if s.failSt {
		return errors.New("boom")
	}
	return nil
}

func (s *recordedService) Stop(context.Context) error {
	s.stopped = true
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordedService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	first := &recordedService{name: "first", events: &events}
	failing := &recordedService{name: "failing", events: &events, failSt: true}
	if err := m.Register(first); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(failing); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if !first.stopped {
		t.Fatal("expected first service stopped after rollback")
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "x"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestManagerRejectsRegisterAfterStart(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "y"}); err == nil {
		t.Fatal("expected registration rejection after start")
	}
}
