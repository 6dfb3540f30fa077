package topology

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geopm-project/platformio-go/pkg/logging"
)

// ProcOracle probes /sys/devices/system/cpu for the live CPU count and
// falls back to a StaticOracle built from fallback for every other domain
// and for nesting. It never fails hard: a probe error logs a warning and
// falls back to the shape's configured value, since the original GEOPM
// PlatformTopo has the same tolerance for unusual kernels (it caches a
// best-effort snapshot rather than require every sysfs file to exist).
type ProcOracle struct {
	*StaticOracle
}

// NewProcOracle probes the live CPU topology under sysfsRoot (normally
// "/sys"), overlaying it onto fallback for every count ProcOracle cannot
// determine itself.
func NewProcOracle(sysfsRoot string, fallback Shape) *ProcOracle {
	shape := fallback
	if n, err := probeCPUCount(sysfsRoot); err == nil && n > 0 {
		packages := max1(shape.PackagesPerBoard) * max1(shape.Boards)
		if n%packages == 0 {
			shape.CoresPerPackage = n / packages / max1(shape.ThreadsPerCore)
		}
	} else if err != nil {
		logging.Warn("Topology", "falling back to configured shape: %v", err)
	}
	return &ProcOracle{StaticOracle: NewStaticOracle(shape)}
}

// probeCPUCount reads the "present" CPU list, e.g. "0-31", and returns the
// count of logical CPUs it describes.
func probeCPUCount(sysfsRoot string) (int, error) {
	path := filepath.Join(sysfsRoot, "devices", "system", "cpu", "present")
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("topology: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("topology: %s is empty", path)
	}
	return parseCPUList(strings.TrimSpace(scanner.Text()))
}

// parseCPUList parses a kernel cpulist like "0-31" or "0-7,16-23" into a
// total count of CPUs it describes.
func parseCPUList(s string) (int, error) {
	total := 0
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		bounds := strings.SplitN(field, "-", 2)
		lo, err := strconv.Atoi(bounds[0])
		if err != nil {
			return 0, fmt.Errorf("topology: invalid cpulist field %q: %w", field, err)
		}
		hi := lo
		if len(bounds) == 2 {
			hi, err = strconv.Atoi(bounds[1])
			if err != nil {
				return 0, fmt.Errorf("topology: invalid cpulist field %q: %w", field, err)
			}
		}
		total += hi - lo + 1
	}
	return total, nil
}
