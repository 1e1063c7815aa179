package telemetry

// Family selects the subset of the host snapshot a refresh touches.
type Family int

const (
	CPU Family = iota
	Disks
	Memory
	Networks
	Temperatures
	Users
	LoadAverage
	BootTime
	OSInfo

	familyCount
)

// Families lists every metric family in declaration order.
func Families() []Family {
	out := make([]Family, 0, familyCount)
	for f := Family(0); f < familyCount; f++ {
		out = append(out, f)
	}
	return out
}

// Count is the number of metric families.
const Count = int(familyCount)

var familyNames = [familyCount]string{
	CPU:          "cpu",
	Disks:        "disks",
	Memory:       "memory",
	Networks:     "networks",
	Temperatures: "temperatures",
	Users:        "users",
	LoadAverage:  "load_average",
	BootTime:     "boot_time",
	OSInfo:       "os_info",
}

func (f Family) String() string {
	if f < 0 || f >= familyCount {
		return "unknown"
	}
	return familyNames[f]
}

// Valid reports whether f names a known family.
func (f Family) Valid() bool {
	return f >= 0 && f < familyCount
}
