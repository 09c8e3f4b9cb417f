package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"riakadm/internal/app"
	"riakadm/internal/config"
	"riakadm/internal/core"
	"riakadm/pkg/logger"
)

// Запуск и остановка узла могут занимать десятки секунд.
const opTimeout = 60 * time.Second

type options struct {
	configPath string
}

// New создает корневую CLI-команду riakadm.
func New(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "riakadm",
		Short:         "Агент администрирования локального узла Riak",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "путь к YAML-конфигу")

	for _, entry := range []struct {
		use   string
		short string
		op    string
		nargs cobra.PositionalArgs
	}{
		{"version", "Версия узла Riak", "version", cobra.NoArgs},
		{"ping", "Проверить узел, вернуть pong", "ping", cobra.NoArgs},
		{"up", "Проверить доступность узла по коду выхода", "is_up", cobra.NoArgs},
		{"start", "Запустить узел", "start", cobra.NoArgs},
		{"stop", "Остановить узел", "stop", cobra.NoArgs},
		{"restart", "Перезапустить узел без выхода из Erlang VM", "restart", cobra.NoArgs},
		{"ringready", "Согласовано ли кольцо всеми узлами", "ringready", cobra.NoArgs},
		{"ring-status", "Состояние кольца: claimant, handoff, недоступные узлы", "ring_status", cobra.NoArgs},
		{"member-status", "Членство в кластере и сводные счетчики", "member_status", cobra.NoArgs},
		{"transfers", "Узлы, ожидающие передачи партиций", "transfers", cobra.NoArgs},
		{"diag", "Диагностические проверки узла", "diag", cobra.NoArgs},
		{"status", "Статистика и состояние узла", "status", cobra.NoArgs},
	} {
		entry := entry
		root.AddCommand(&cobra.Command{
			Use:   entry.use,
			Short: entry.short,
			Args:  entry.nargs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runOp(cmd, entry.op, args)
			},
		})
	}

	root.AddCommand(newClusterCmd(opts))
	root.AddCommand(newHostCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

func newClusterCmd(opts *options) *cobra.Command {
	cluster := &cobra.Command{
		Use:   "cluster",
		Short: "Staged-операции членства в кластере",
	}

	join := &cobra.Command{
		Use:   "join <node>",
		Short: "Присоединить узел к кластеру node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, "cluster_join", args)
		},
	}

	var leaveForce bool
	leave := &cobra.Command{
		Use:   "leave [node]",
		Short: "Вывести узел из кластера; без аргумента — текущий узел",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node := ""
			if len(args) == 1 {
				node = args[0]
			}
			return opts.runOp(cmd, "cluster_leave", leaveArgs(node, leaveForce))
		},
	}
	leave.Flags().BoolVar(&leaveForce, "force", false, "force-remove без передачи партиций")

	var replaceForce bool
	replace := &cobra.Command{
		Use:   "replace <node1> <node2>",
		Short: "Передать партиции node1 узлу node2",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, "cluster_replace", replaceArgs(args[0], args[1], replaceForce))
		},
	}
	replace.Flags().BoolVar(&replaceForce, "force", false, "заменить без передачи партиций")

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Показать staged-изменения кластера",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, "cluster_plan", nil)
		},
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Сбросить staged-изменения кластера",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, "cluster_clear", nil)
		},
	}
	commit := &cobra.Command{
		Use:   "commit",
		Short: "Применить staged-изменения кластера",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, "cluster_commit", nil)
		},
	}

	cluster.AddCommand(join, leave, replace, plan, clear, commit)
	return cluster
}

func newHostCmd(opts *options) *cobra.Command {
	host := &cobra.Command{
		Use:   "host",
		Short: "Метрики узла, на котором работает Riak",
	}
	host.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Память, load average и заполненность каталога данных",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runModuleOp(cmd, "host", "status", nil)
		},
	})
	return host
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить агент: web transport и периодические срезы состояния",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			lg := logger.New(cfg.Agent.LogLevel)

			application, err := app.New(cmd.Context(), cfg, lg)
			if err != nil {
				return err
			}
			defer func() { _ = application.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lg.Info("riakadm agent started", "web_enabled", cfg.Web.Enabled)
			if err := application.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func (o *options) runOp(cmd *cobra.Command, op string, args []string) error {
	return o.runModuleOp(cmd, "riak", op, args)
}

func (o *options) runModuleOp(cmd *cobra.Command, module, op string, args []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	registry, err := app.NewRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
	defer cancel()

	resp, execErr := registry.Execute(ctx, module, op, args)
	if err := printResponse(cmd, resp); err != nil {
		return err
	}
	if execErr != nil {
		return execErr
	}
	// Ненулевой код выхода для ложных результатов.
	if resp.Status != "ok" {
		return fmt.Errorf("%s", resp.ErrorCode)
	}
	return nil
}

func printResponse(cmd *cobra.Command, resp core.Response) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// leaveArgs переводит флаги CLI в аргументы модульной команды.
func leaveArgs(node string, force bool) []string {
	args := []string{}
	if node != "" {
		args = append(args, node)
	}
	if force {
		args = append(args, "true")
	}
	return args
}

func replaceArgs(node1, node2 string, force bool) []string {
	args := []string{node1, node2}
	if force {
		args = append(args, "true")
	}
	return args
}
