package platform

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// HostDetails carries advisory host information for diagnostics output.
// It never gates resolution; a failed lookup just means less detail in
// the status report.
type HostDetails struct {
	Hostname      string
	OS            string
	Platform      string
	KernelVersion string
	KernelArch    string
}

// Details collects host identity via gopsutil. Fields that cannot be
// detected are left empty rather than failing the whole lookup.
func Details(ctx context.Context) (HostDetails, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostDetails{}, err
	}
	return HostDetails{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		KernelArch:    info.KernelArch,
	}, nil
}
