package device

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const batteryCapacityPath = "/sys/class/power_supply/BAT0/capacity"

// Info carries best-effort device metadata attached to outbound location
// updates. Missing fields stay nil; lookup failures are never surfaced.
type Info struct {
	BatteryLevel *int
	DeviceModel  *string
}

// Collect gathers whatever metadata the host exposes. It never fails: fields
// that cannot be read are simply absent.
func Collect() Info {
	info := Info{}

	if raw, err := os.ReadFile(batteryCapacityPath); err == nil {
		if level, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil {
			info.BatteryLevel = &level
		}
	}

	model := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		model = fmt.Sprintf("%s (%s)", hostname, model)
	}
	info.DeviceModel = &model

	return info
}
