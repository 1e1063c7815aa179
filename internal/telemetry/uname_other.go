//go:build !linux && !darwin && !freebsd

package telemetry

func unameRelease() string {
	return ""
}
