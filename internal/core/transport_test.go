package core

import (
	"context"
	"testing"
)

type fakeTransport struct {
	name    string
	started bool
	stopped bool
}

func (f *fakeTransport) Name() string { return f.name }
func (f *fakeTransport) Start(ctx context.Context) error {
	f.started = true
	return nil
}
func (f *fakeTransport) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func TestTransportManagerLifecycle(t *testing.T) {
	m := NewTransportManager()
	tr := &fakeTransport{name: "web"}
	if err := m.Register(tr); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if !tr.started {
		t.Fatalf("transport was not started")
	}
	if err := m.StopAll(ctx); err != nil {
		t.Fatalf("stop all: %v", err)
	}
	if !tr.stopped {
		t.Fatalf("transport was not stopped")
	}
}

func TestTransportManagerDuplicate(t *testing.T) {
	m := NewTransportManager()
	if err := m.Register(&fakeTransport{name: "web"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(&fakeTransport{name: "web"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestTransportManagerStopUnknown(t *testing.T) {
	m := NewTransportManager()
	if err := m.StopOne(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}
