package host

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"riakadm/internal/core"
)

// Module отдает метрики узла, на котором работает Riak: память, load
// average и заполненность каталога данных.
type Module struct {
	// DataDir — каталог данных Riak; пустое значение отключает метрику диска.
	DataDir string
}

func (m *Module) Name() string { return "host" }

func (m *Module) Init(ctx context.Context) error { return nil }

func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	switch cmd {
	case "status":
		return m.status(ctx)
	default:
		return core.Fail("unknown_command", nil), fmt.Errorf("command %s not supported", cmd)
	}
}

func (m *Module) status(ctx context.Context) (core.Response, error) {
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return core.Fail("host_info_failed", nil), fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return core.Fail("mem_info_failed", nil), fmt.Errorf("memory info: %w", err)
	}
	ld, err := load.AvgWithContext(ctx)
	if err != nil {
		return core.Fail("load_info_failed", nil), fmt.Errorf("load info: %w", err)
	}

	data := map[string]interface{}{
		"hostname":     hInfo.Hostname,
		"platform":     hInfo.Platform,
		"kernel":       hInfo.KernelVersion,
		"uptime_sec":   hInfo.Uptime,
		"boot_time":    time.Unix(int64(hInfo.BootTime), 0).UTC().Format(time.RFC3339),
		"mem_total":    vm.Total,
		"mem_used":     vm.Used,
		"mem_used_pct": vm.UsedPercent,
		"load1":        ld.Load1,
		"load5":        ld.Load5,
		"load15":       ld.Load15,
	}

	if m.DataDir != "" {
		du, err := disk.UsageWithContext(ctx, m.DataDir)
		if err == nil {
			data["data_dir"] = m.DataDir
			data["data_dir_total"] = du.Total
			data["data_dir_used"] = du.Used
			data["data_dir_used_pct"] = du.UsedPercent
		}
	}

	return core.OK(data), nil
}
