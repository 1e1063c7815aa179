package handlers

import (
	"net/http"

	"hostmon/internal/models"
	"hostmon/internal/telemetry"
)

// route binds one metric family to its endpoint and document shape.
type route struct {
	method string
	path   string
	shape  func(*models.HostSnapshot) any
}

// routes is indexed by family so every family has exactly one endpoint.
var routes = [telemetry.Count]route{
	telemetry.CPU:          {http.MethodGet, "/cpus", shapeCPUs},
	telemetry.Disks:        {http.MethodGet, "/disks", shapeDisks},
	telemetry.Memory:       {http.MethodGet, "/memory", shapeMemory},
	telemetry.Networks:     {http.MethodGet, "/networks", shapeNetworks},
	telemetry.Temperatures: {http.MethodGet, "/temperatures", shapeTemperatures},
	telemetry.Users:        {http.MethodGet, "/users", shapeUsers},
	telemetry.LoadAverage:  {http.MethodGet, "/load_average", shapeLoadAverage},
	telemetry.BootTime:     {http.MethodGet, "/boot_time", shapeBootTime},
	telemetry.OSInfo:       {http.MethodGet, "/sysinfo", shapeSysinfo},
}

// Endpoint describes a registered metric route.
type Endpoint struct {
	Method string
	Path   string
	Family telemetry.Family
}

// Endpoints lists the metric routes in family order.
func Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(routes))
	for i, rt := range routes {
		out = append(out, Endpoint{Method: rt.method, Path: rt.path, Family: telemetry.Family(i)})
	}
	return out
}
