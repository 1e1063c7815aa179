package models

// CPU is one logical processor. Usage is the busy percentage between the two
// most recent refreshes; the tick fields are the cumulative counters that
// delta was computed from.
type CPU struct {
	Name         string
	Usage        float64
	FrequencyMHz uint64
	TotalTicks   float64
	IdleTicks    float64
}

// Disk is a mounted partition with its capacity in bytes.
type Disk struct {
	Device         string
	FileSystem     string
	TotalSpace     uint64
	AvailableSpace uint64
}

// NetworkInterface reports bytes moved since the previous refresh together
// with the cumulative counters used to derive them.
type NetworkInterface struct {
	Name             string
	Received         uint64
	Transmitted      uint64
	TotalReceived    uint64
	TotalTransmitted uint64
}

// Component is a thermal sensor reading in degrees Celsius.
type Component struct {
	Label       string
	Temperature float64
}

// User is a logged-in account and the names of the groups it belongs to.
type User struct {
	Name   string
	Groups []string
}

// NetworkByName returns the interface with the given name, if present.
func (s *HostSnapshot) NetworkByName(name string) (NetworkInterface, bool) {
	if s == nil {
		return NetworkInterface{}, false
	}
	for _, n := range s.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return NetworkInterface{}, false
}
