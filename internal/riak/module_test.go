package riak

import (
	"context"
	"reflect"
	"testing"
)

func newTestModule(run Runner) *Module {
	return NewModule(NewAdmin(run, "", ""))
}

func TestModuleTransfersNoneActive(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"riak-admin transfers": "No transfers active",
	}}
	resp, err := newTestModule(run).Execute(context.Background(), "transfers", nil)
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}
	if resp.Status != "ok" || resp.Data != "No transfers active" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestModuleTransfersActive(t *testing.T) {
	out := "'riak@10.0.0.2' waiting to handoff 3 partitions\n'riak@10.0.0.3' waiting to handoff 1 partitions"
	run := &fakeRunner{outputs: map[string]string{"riak-admin transfers": out}}
	resp, err := newTestModule(run).Execute(context.Background(), "transfers", nil)
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}
	lines, ok := resp.Data.([]string)
	if !ok || len(lines) != 2 {
		t.Fatalf("expected full line list, got %#v", resp.Data)
	}
}

func TestModuleDiagNothingToReport(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{"riak-admin diag": ""}}
	resp, err := newTestModule(run).Execute(context.Background(), "diag", nil)
	if err != nil {
		t.Fatalf("diag: %v", err)
	}
	if resp.Data != "Nothing to report" {
		t.Fatalf("unexpected diag result: %#v", resp.Data)
	}
}

func TestModuleDiagFindings(t *testing.T) {
	out := "[warning] insufficient file descriptors\n[notice] data directory on slow storage"
	run := &fakeRunner{outputs: map[string]string{"riak-admin diag": out}}
	resp, err := newTestModule(run).Execute(context.Background(), "diag", nil)
	if err != nil {
		t.Fatalf("diag: %v", err)
	}
	lines, ok := resp.Data.([]string)
	if !ok || len(lines) != 2 {
		t.Fatalf("expected findings list, got %#v", resp.Data)
	}
}

func TestModuleClusterJoinValidationStopsBeforeExecutor(t *testing.T) {
	run := &fakeRunner{}
	resp, err := newTestModule(run).Execute(context.Background(), "cluster_join", []string{"badnode"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.Status != "error" || resp.ErrorCode != "invalid_node" {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if len(run.calls) != 0 {
		t.Fatalf("executor must not be invoked, ran %v", run.calls)
	}
}

func TestModuleClusterLeaveParsesForceToken(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"riak-admin cluster force-remove riak@10.0.0.2": "Success: staged remove request for 'riak@10.0.0.2'",
	}}
	resp, err := newTestModule(run).Execute(context.Background(), "cluster_leave", []string{"riak@10.0.0.2", "true"})
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if resp.Status != "ok" || resp.Data != true {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestModuleClusterCommitNeedsVerify(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"riak-admin cluster commit": "You must verify the plan with 'riak-admin cluster plan' before committing",
		"riak-admin cluster plan":   "join           'riak@10.0.0.2'",
	}}
	resp, err := newTestModule(run).Execute(context.Background(), "cluster_commit", nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if resp.ErrorCode != "plan_not_verified" {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if plan, ok := resp.Data.([]string); !ok || len(plan) != 1 {
		t.Fatalf("expected plan in data, got %#v", resp.Data)
	}
}

func TestModulePingDown(t *testing.T) {
	run := &fakeRunner{exits: map[string]int{"riak ping": 1}}
	resp, err := newTestModule(run).Execute(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if resp.Status != "error" || resp.ErrorCode != "node_down" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestModuleEmptyOutputSurfaces(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"riak version": "Attempting to restart script through sudo -H -u riak",
	}}
	resp, err := newTestModule(run).Execute(context.Background(), "version", nil)
	if err == nil {
		t.Fatalf("expected error for empty output")
	}
	if resp.ErrorCode != "empty_output" {
		t.Fatalf("unexpected error code: %q", resp.ErrorCode)
	}
}

func TestModuleStatusShape(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"riak-admin status": "vnode_gets : 0",
	}}
	resp, err := newTestModule(run).Execute(context.Background(), "status", nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	want := []map[string]string{{"vnode_gets": "0"}}
	if !reflect.DeepEqual(resp.Data, want) {
		t.Fatalf("unexpected data: %#v", resp.Data)
	}
}

func TestModuleUnknownCommand(t *testing.T) {
	run := &fakeRunner{}
	_, err := newTestModule(run).Execute(context.Background(), "drop_tables", nil)
	if err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
