package riak

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"riakadm/internal/core"
)

// Module экспонирует операции администрирования Riak как модуль команд.
type Module struct {
	admin *Admin
}

// NewModule оборачивает адаптер в core.CommandProvider.
func NewModule(admin *Admin) *Module {
	return &Module{admin: admin}
}

func (m *Module) Name() string { return "riak" }

func (m *Module) Init(ctx context.Context) error { return nil }

// Execute маршрутизирует команду модуля в операцию адаптера.
func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	switch cmd {
	case "version":
		v, err := m.admin.Version(ctx)
		if err != nil {
			return failFrom(err)
		}
		return core.OK(v), nil
	case "ping":
		pong, err := m.admin.Ping(ctx)
		if err != nil {
			return failFrom(err)
		}
		if pong == "" {
			return core.Fail("node_down", pong), nil
		}
		return core.OK(pong), nil
	case "is_up":
		return m.exitCmd(ctx, m.admin.IsUp, "node_down")
	case "start":
		return m.exitCmd(ctx, m.admin.Start, "start_failed")
	case "stop":
		return m.exitCmd(ctx, m.admin.Stop, "stop_failed")
	case "restart":
		return m.exitCmd(ctx, m.admin.Restart, "restart_failed")
	case "cluster_join":
		if len(args) != 1 {
			return core.Fail("invalid_arguments", nil), fmt.Errorf("cluster_join expects exactly one node")
		}
		res, err := m.admin.ClusterJoin(ctx, args[0])
		if err != nil {
			return failFrom(err)
		}
		return stagedResponse(res), nil
	case "cluster_leave":
		node, force, err := parseNodeForce(args)
		if err != nil {
			return core.Fail("invalid_arguments", nil), err
		}
		res, err := m.admin.ClusterLeave(ctx, node, force)
		if err != nil {
			return failFrom(err)
		}
		return stagedResponse(res), nil
	case "cluster_replace":
		if len(args) < 2 || len(args) > 3 {
			return core.Fail("invalid_arguments", nil), fmt.Errorf("cluster_replace expects two nodes and optional force")
		}
		force := false
		if len(args) == 3 {
			parsed, err := strconv.ParseBool(args[2])
			if err != nil {
				return core.Fail("invalid_arguments", nil), fmt.Errorf("parse force: %w", err)
			}
			force = parsed
		}
		res, err := m.admin.ClusterReplace(ctx, args[0], args[1], force)
		if err != nil {
			return failFrom(err)
		}
		return stagedResponse(res), nil
	case "cluster_plan":
		plan, err := m.admin.ClusterPlan(ctx)
		if err != nil {
			return failFrom(err)
		}
		return core.OK(plan), nil
	case "cluster_clear":
		res, err := m.admin.ClusterClear(ctx)
		if err != nil {
			return failFrom(err)
		}
		if res.OK {
			return core.OK(true), nil
		}
		return core.Fail("command_rejected", res.Message), nil
	case "cluster_commit":
		res, err := m.admin.ClusterCommit(ctx)
		if err != nil {
			return failFrom(err)
		}
		if res.NeedsVerify {
			return core.Fail("plan_not_verified", res.Plan), nil
		}
		return core.OK(res.Message), nil
	case "ringready":
		ready, err := m.admin.RingReady(ctx)
		if err != nil {
			return failFrom(err)
		}
		if !ready {
			return core.Fail("ring_not_ready", false), nil
		}
		return core.OK(true), nil
	case "ring_status":
		lines, err := m.admin.RingStatus(ctx)
		if err != nil {
			return failFrom(err)
		}
		return core.OK(lines), nil
	case "member_status":
		ms, err := m.admin.MemberStatus(ctx)
		if err != nil {
			return failFrom(err)
		}
		return core.OK(ms), nil
	case "transfers":
		lines, err := m.admin.Transfers(ctx)
		if err != nil {
			return failFrom(err)
		}
		if len(lines) > 0 && lines[0] == "No transfers active" {
			return core.OK(lines[0]), nil
		}
		return core.OK(lines), nil
	case "diag":
		lines, err := m.admin.Diag(ctx)
		if err != nil {
			return failFrom(err)
		}
		if len(lines) == 1 && len(lines[0]) == 0 {
			return core.OK("Nothing to report"), nil
		}
		return core.OK(lines), nil
	case "status":
		stats, err := m.admin.Status(ctx)
		if err != nil {
			return failFrom(err)
		}
		return core.OK(stats), nil
	default:
		return core.Fail("unknown_command", nil), fmt.Errorf("command %s not supported", cmd)
	}
}

func (m *Module) exitCmd(ctx context.Context, op func(context.Context) (bool, error), failCode string) (core.Response, error) {
	ok, err := op(ctx)
	if err != nil {
		return failFrom(err)
	}
	if !ok {
		return core.Fail(failCode, false), nil
	}
	return core.OK(true), nil
}

// stagedResponse переводит OpResult в унифицированный ответ: true при
// успехе, пустой результат валидации как invalid_node, иначе дословная
// строка riak-admin.
func stagedResponse(res OpResult) core.Response {
	if res.OK {
		return core.OK(true)
	}
	if res.Message == "" {
		return core.Fail("invalid_node", false)
	}
	return core.Fail("command_rejected", res.Message)
}

func failFrom(err error) (core.Response, error) {
	if errors.Is(err, ErrEmptyOutput) {
		return core.Fail("empty_output", nil), err
	}
	return core.Fail("exec_failed", nil), err
}

// parseNodeForce разбирает аргументы вида [node] [force] в любом порядке:
// токен, разбираемый как bool, трактуется как force, остальное как узел.
func parseNodeForce(args []string) (string, bool, error) {
	node := ""
	force := false
	for _, arg := range args {
		if parsed, err := strconv.ParseBool(arg); err == nil {
			force = parsed
			continue
		}
		if node != "" {
			return "", false, fmt.Errorf("unexpected argument %q", arg)
		}
		node = arg
	}
	return node, force, nil
}
