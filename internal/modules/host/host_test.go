package host

import (
	"context"
	"testing"
)

func TestUnknownCommand(t *testing.T) {
	m := &Module{}
	ctx := context.Background()
	if _, err := m.Execute(ctx, "unknown", nil); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestStatusWithoutDataDir(t *testing.T) {
	m := &Module{}
	resp, err := m.Execute(context.Background(), "status", nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %#v", resp.Data)
	}
	if _, ok := data["data_dir"]; ok {
		t.Fatalf("disk metrics must be absent without data dir")
	}
}
