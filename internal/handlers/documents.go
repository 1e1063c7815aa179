package handlers

import (
	"hostmon/internal/models"
)

// notAvailable replaces OS identity strings the provider could not read.
const notAvailable = "N/A"

type cpuEntry struct {
	CPUNum    string  `json:"cpu_num"`
	Percent   float64 `json:"percent"`
	Frequency uint64  `json:"frequency"`
}

type cpuDocument struct {
	CPUInfo []cpuEntry `json:"cpu_info"`
}

type diskEntry struct {
	DeviceName     string `json:"device_name"`
	FileSystem     string `json:"file_system"`
	TotalSpace     uint64 `json:"total_space"`
	AvailableSpace uint64 `json:"available_space"`
}

type memoryEntry struct {
	AvailableMemory uint64 `json:"available_memory"`
	FreeMemory      uint64 `json:"free_memory"`
	FreeSwap        uint64 `json:"free_swap"`
	TotalMemory     uint64 `json:"total_memory"`
	TotalSwap       uint64 `json:"total_swap"`
	UsedMemory      uint64 `json:"used_memory"`
	UsedSwap        uint64 `json:"used_swap"`
}

type networkEntry struct {
	InterfaceName   string `json:"interface_name"`
	DataReceived    uint64 `json:"data_received"`
	DataTransmitted uint64 `json:"data_transmitted"`
}

type temperatureEntry struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
}

type temperatureDocument struct {
	TemperatureInfo []temperatureEntry `json:"temperature_info"`
}

type userEntry struct {
	Name  string   `json:"name"`
	Group []string `json:"group"`
}

type loadAverageEntry struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

type bootTimeDocument struct {
	BootTime uint64 `json:"boot_time"`
}

type sysinfoEntry struct {
	KernelVersion  string `json:"kernel_version"`
	OSVersion      string `json:"os_version"`
	LongOSVersion  string `json:"long_os_version"`
	DistributionID string `json:"distribution_id"`
	HostName       string `json:"host_name"`
}

// The shape* functions run under the store lock and must copy everything
// they need out of the snapshot.

func shapeCPUs(s *models.HostSnapshot) any {
	entries := make([]cpuEntry, 0, len(s.CPUs))
	for _, c := range s.CPUs {
		entries = append(entries, cpuEntry{
			CPUNum:    c.Name,
			Percent:   c.Usage,
			Frequency: c.FrequencyMHz,
		})
	}
	return cpuDocument{CPUInfo: entries}
}

func shapeDisks(s *models.HostSnapshot) any {
	entries := make([]diskEntry, 0, len(s.Disks))
	for _, d := range s.Disks {
		entries = append(entries, diskEntry{
			DeviceName:     d.Device,
			FileSystem:     d.FileSystem,
			TotalSpace:     d.TotalSpace,
			AvailableSpace: d.AvailableSpace,
		})
	}
	return entries
}

func shapeMemory(s *models.HostSnapshot) any {
	m := s.Memory
	return []memoryEntry{{
		AvailableMemory: m.Available,
		FreeMemory:      m.Free,
		FreeSwap:        m.SwapFree,
		TotalMemory:     m.Total,
		TotalSwap:       m.SwapTotal,
		UsedMemory:      m.Used,
		UsedSwap:        m.SwapUsed,
	}}
}

func shapeNetworks(s *models.HostSnapshot) any {
	entries := make([]networkEntry, 0, len(s.Networks))
	for _, n := range s.Networks {
		entries = append(entries, networkEntry{
			InterfaceName:   n.Name,
			DataReceived:    n.Received,
			DataTransmitted: n.Transmitted,
		})
	}
	return entries
}

// Unlabelled sensors are dropped.
func shapeTemperatures(s *models.HostSnapshot) any {
	entries := make([]temperatureEntry, 0, len(s.Components))
	for _, c := range s.Components {
		if c.Label == "" {
			continue
		}
		entries = append(entries, temperatureEntry{Name: c.Label, Temperature: c.Temperature})
	}
	return temperatureDocument{TemperatureInfo: entries}
}

func shapeUsers(s *models.HostSnapshot) any {
	entries := make([]userEntry, 0, len(s.Users))
	for _, u := range s.Users {
		groups := make([]string, len(u.Groups))
		copy(groups, u.Groups)
		entries = append(entries, userEntry{Name: u.Name, Group: groups})
	}
	return entries
}

func shapeLoadAverage(s *models.HostSnapshot) any {
	l := s.LoadAverage
	return []loadAverageEntry{{One: l.One, Five: l.Five, Fifteen: l.Fifteen}}
}

func shapeBootTime(s *models.HostSnapshot) any {
	return []bootTimeDocument{{BootTime: s.BootTime}}
}

func shapeSysinfo(s *models.HostSnapshot) any {
	info := s.OS
	return []sysinfoEntry{{
		KernelVersion:  orNotAvailable(info.KernelVersion),
		OSVersion:      orNotAvailable(info.OSVersion),
		LongOSVersion:  orNotAvailable(info.LongOSVersion),
		DistributionID: orNotAvailable(info.DistributionID),
		HostName:       orNotAvailable(info.HostName),
	}}
}

func orNotAvailable(v string) string {
	if v == "" {
		return notAvailable
	}
	return v
}
