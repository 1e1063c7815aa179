package models

// HostSnapshot is the last observed state of the host across every metric
// family. A single instance is owned by the telemetry store and mutated in
// place on each refresh; nothing else should hold a reference to it.
type HostSnapshot struct {
	CPUs        []CPU
	Disks       []Disk
	Memory      Memory
	Networks    []NetworkInterface
	Components  []Component
	Users       []User
	LoadAverage LoadAverage
	// BootTime is seconds since the Unix epoch.
	BootTime uint64
	OS       OSInfo
}

// Memory holds RAM and swap counters in bytes.
type Memory struct {
	Total     uint64
	Available uint64
	Free      uint64
	Used      uint64
	SwapTotal uint64
	SwapFree  uint64
	SwapUsed  uint64
}

// LoadAverage is the 1/5/15 minute run-queue average.
type LoadAverage struct {
	One     float64
	Five    float64
	Fifteen float64
}

// OSInfo carries host identity strings. An empty field means the provider
// could not determine it.
type OSInfo struct {
	KernelVersion  string
	OSVersion      string
	LongOSVersion  string
	DistributionID string
	HostName       string
}
