package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hostmon/internal/models"
)

// SystemProvider collects live host metrics through gopsutil. It keeps no
// state of its own: the previous CPU ticks and network counters it needs for
// deltas are read back from the snapshot being refreshed.
type SystemProvider struct {
	groupsOf      func(username string) []string
	kernelRelease func() string
	hostname      func() (string, error)
}

// NewSystemProvider returns a provider bound to the local host.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{
		groupsOf:      userGroups,
		kernelRelease: unameRelease,
		hostname:      os.Hostname,
	}
}

// Refresh implements Provider.
func (p *SystemProvider) Refresh(ctx context.Context, family Family, snap *models.HostSnapshot) error {
	switch family {
	case CPU:
		return p.refreshCPUs(ctx, snap)
	case Disks:
		return p.refreshDisks(ctx, snap)
	case Memory:
		return p.refreshMemory(ctx, snap)
	case Networks:
		return p.refreshNetworks(ctx, snap)
	case Temperatures:
		return p.refreshTemperatures(ctx, snap)
	case Users:
		return p.refreshUsers(ctx, snap)
	case LoadAverage:
		return p.refreshLoadAverage(ctx, snap)
	case BootTime:
		return p.refreshBootTime(ctx, snap)
	case OSInfo:
		return p.refreshOSInfo(ctx, snap)
	default:
		return fmt.Errorf("unknown metric family %d", int(family))
	}
}

func (p *SystemProvider) refreshCPUs(ctx context.Context, snap *models.HostSnapshot) error {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		snap.CPUs = []models.CPU{}
		return fmt.Errorf("cpu times: %w", err)
	}
	// Frequency is best effort; usage is still reported without it.
	infos, infoErr := cpu.InfoWithContext(ctx)

	cpus := make([]models.CPU, 0, len(times))
	for i, t := range times {
		total := cpuTotal(t)
		idle := t.Idle + t.Iowait
		entry := models.CPU{
			Name:         fmt.Sprintf("cpu%d", i),
			FrequencyMHz: cpuFrequency(infos, i),
			TotalTicks:   total,
			IdleTicks:    idle,
		}
		if i < len(snap.CPUs) {
			entry.Usage = cpuUsage(snap.CPUs[i], total, idle)
		}
		cpus = append(cpus, entry)
	}
	snap.CPUs = cpus
	if infoErr != nil {
		return fmt.Errorf("cpu info: %w", infoErr)
	}
	return nil
}

func cpuTotal(stat cpu.TimesStat) float64 {
	return stat.User + stat.System + stat.Nice + stat.Idle + stat.Iowait + stat.Irq + stat.Softirq + stat.Steal + stat.Guest + stat.GuestNice
}

// cpuUsage returns the busy percentage between prev and the current
// cumulative ticks. Without forward progress the previous reading stands.
func cpuUsage(prev models.CPU, total, idle float64) float64 {
	if prev.TotalTicks <= 0 {
		return 0
	}
	deltaTotal := total - prev.TotalTicks
	if deltaTotal <= 0 {
		return prev.Usage
	}
	used := deltaTotal - (idle - prev.IdleTicks)
	if used < 0 {
		used = 0
	}
	return clampFloat((used/deltaTotal)*100, 0, 100)
}

func cpuFrequency(infos []cpu.InfoStat, i int) uint64 {
	if len(infos) == 0 {
		return 0
	}
	// Some platforms report a single package entry for all logical CPUs.
	if i >= len(infos) {
		i = 0
	}
	mhz := infos[i].Mhz
	if math.IsNaN(mhz) || mhz <= 0 {
		return 0
	}
	return uint64(mhz)
}

func (p *SystemProvider) refreshDisks(ctx context.Context, snap *models.HostSnapshot) error {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		snap.Disks = []models.Disk{}
		return fmt.Errorf("disk partitions: %w", err)
	}
	disks := make([]models.Disk, 0, len(parts))
	var errs []error
	for _, part := range parts {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil || usage == nil {
			errs = append(errs, fmt.Errorf("disk usage %s: %w", part.Mountpoint, err))
			continue
		}
		available := usage.Free
		if available > usage.Total {
			available = usage.Total
		}
		disks = append(disks, models.Disk{
			Device:         part.Device,
			FileSystem:     part.Fstype,
			TotalSpace:     usage.Total,
			AvailableSpace: available,
		})
	}
	snap.Disks = disks
	return errors.Join(errs...)
}

func (p *SystemProvider) refreshMemory(ctx context.Context, snap *models.HostSnapshot) error {
	var m models.Memory
	var errs []error
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || vm == nil {
		errs = append(errs, fmt.Errorf("virtual memory: %w", err))
	} else {
		m.Total = vm.Total
		m.Available = vm.Available
		m.Free = vm.Free
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil || swap == nil {
		errs = append(errs, fmt.Errorf("swap memory: %w", err))
	} else {
		m.SwapTotal = swap.Total
		m.SwapFree = swap.Free
	}
	snap.Memory = normalizeMemory(m)
	return errors.Join(errs...)
}

// normalizeMemory derives the used counters from total and available so the
// reported figures are always mutually consistent.
func normalizeMemory(m models.Memory) models.Memory {
	if m.Available > m.Total {
		m.Available = m.Total
	}
	m.Used = m.Total - m.Available
	if m.Free > m.Total-m.Used {
		m.Free = m.Total - m.Used
	}
	if m.SwapFree > m.SwapTotal {
		m.SwapFree = m.SwapTotal
	}
	m.SwapUsed = m.SwapTotal - m.SwapFree
	return m
}

func (p *SystemProvider) refreshNetworks(ctx context.Context, snap *models.HostSnapshot) error {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		snap.Networks = []models.NetworkInterface{}
		return fmt.Errorf("network counters: %w", err)
	}
	nics := make([]models.NetworkInterface, 0, len(counters))
	for _, c := range counters {
		nic := models.NetworkInterface{
			Name:             c.Name,
			TotalReceived:    c.BytesRecv,
			TotalTransmitted: c.BytesSent,
		}
		if prev, ok := snap.NetworkByName(c.Name); ok {
			nic.Received = counterDelta(prev.TotalReceived, c.BytesRecv)
			nic.Transmitted = counterDelta(prev.TotalTransmitted, c.BytesSent)
		}
		nics = append(nics, nic)
	}
	sort.Slice(nics, func(i, j int) bool { return nics[i].Name < nics[j].Name })
	snap.Networks = nics
	return nil
}

// counterDelta treats a counter that went backwards as reset.
func counterDelta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

func (p *SystemProvider) refreshTemperatures(ctx context.Context, snap *models.HostSnapshot) error {
	// gopsutil returns the sensors it could read alongside a warning error
	// for the ones it could not.
	temps, err := sensors.TemperaturesWithContext(ctx)
	comps := make([]models.Component, 0, len(temps))
	for _, t := range temps {
		comps = append(comps, models.Component{
			Label:       t.SensorKey,
			Temperature: t.Temperature,
		})
	}
	snap.Components = comps
	if err != nil {
		return fmt.Errorf("temperatures: %w", err)
	}
	return nil
}

func (p *SystemProvider) refreshUsers(ctx context.Context, snap *models.HostSnapshot) error {
	sessions, err := host.UsersWithContext(ctx)
	if err != nil {
		snap.Users = []models.User{}
		return fmt.Errorf("logged-in users: %w", err)
	}
	names := make([]string, 0, len(sessions))
	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		name := strings.TrimSpace(s.User)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	users := make([]models.User, 0, len(names))
	for _, name := range names {
		groups := p.groupsOf(name)
		if groups == nil {
			groups = []string{}
		}
		users = append(users, models.User{Name: name, Groups: groups})
	}
	snap.Users = users
	return nil
}

func (p *SystemProvider) refreshLoadAverage(ctx context.Context, snap *models.HostSnapshot) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil || avg == nil {
		snap.LoadAverage = models.LoadAverage{}
		return fmt.Errorf("load average: %w", err)
	}
	snap.LoadAverage = models.LoadAverage{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}
	return nil
}

func (p *SystemProvider) refreshBootTime(ctx context.Context, snap *models.HostSnapshot) error {
	bt, err := host.BootTimeWithContext(ctx)
	if err != nil {
		snap.BootTime = 0
		return fmt.Errorf("boot time: %w", err)
	}
	snap.BootTime = bt
	return nil
}

func (p *SystemProvider) refreshOSInfo(ctx context.Context, snap *models.HostSnapshot) error {
	var info models.OSInfo
	var errs []error

	kernel, err := host.KernelVersionWithContext(ctx)
	if err != nil || kernel == "" {
		if err != nil {
			errs = append(errs, fmt.Errorf("kernel version: %w", err))
		}
		kernel = p.kernelRelease()
	}
	info.KernelVersion = strings.TrimSpace(kernel)

	platform, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("platform information: %w", err))
	}
	info.DistributionID = strings.TrimSpace(platform)
	info.OSVersion = strings.TrimSpace(version)
	info.LongOSVersion = longOSVersion(runtime.GOOS, info.DistributionID, info.OSVersion)

	name, err := p.hostname()
	if err != nil {
		errs = append(errs, fmt.Errorf("hostname: %w", err))
	}
	info.HostName = strings.TrimSpace(name)

	snap.OS = info
	return errors.Join(errs...)
}

// longOSVersion renders e.g. "Linux 22.04 Ubuntu".
func longOSVersion(goos, platform, version string) string {
	if platform == "" && version == "" {
		return ""
	}
	title := cases.Title(language.English)
	parts := []string{title.String(goos)}
	if version != "" {
		parts = append(parts, version)
	}
	if platform != "" && !strings.EqualFold(platform, goos) {
		parts = append(parts, title.String(platform))
	}
	return strings.Join(parts, " ")
}

func clampFloat(val, min, max float64) float64 {
	if math.IsNaN(val) {
		return min
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
