// Package cpuinfo implements a provider of static processor facts that
// never change while the machine is up: the sticker (marketing) frequency
// parsed from /proc/cpuinfo, the cpuinfo_min_freq/cpuinfo_max_freq bounds
// from the cpufreq sysfs tree, and the p-state step size. Every signal
// carries behavior class Constant so reporting consumers can cache a
// single read.
package cpuinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

const (
	SignalFreqMin     = "CPUINFO::FREQ_MIN"
	SignalFreqMax     = "CPUINFO::FREQ_MAX"
	SignalFreqSticker = "CPUINFO::FREQ_STICKER"
	SignalFreqStep    = "CPUINFO::FREQ_STEP"

	defaultProcCpuinfo = "/proc/cpuinfo"
	defaultSysfsRoot   = "/sys"

	// stepHz is the universal p-state granularity on the platforms this
	// provider models.
	stepHz = 100e6
)

// New probes procPath (pass "" for /proc/cpuinfo) and sysfsRoot (pass ""
// for /sys) once and constructs the provider over the values found.
// Probing is best-effort: a value that cannot be determined falls back to
// a plausible default with a logged warning, since a missing cpufreq tree
// (containers, some VMs) should not make constant metadata unavailable.
func New(procPath, sysfsRoot string) *provider.Base {
	if procPath == "" {
		procPath = defaultProcCpuinfo
	}
	if sysfsRoot == "" {
		sysfsRoot = defaultSysfsRoot
	}

	sticker, err := parseStickerFreq(procPath)
	if err != nil {
		logging.Warn("Cpuinfo", "sticker frequency unavailable, using default: %v", err)
		sticker = 2.0e9
	}
	freqMin, err := readFreqKHz(filepath.Join(sysfsRoot, "devices/system/cpu/cpu0/cpufreq/cpuinfo_min_freq"))
	if err != nil {
		logging.Warn("Cpuinfo", "min frequency unavailable, using default: %v", err)
		freqMin = 1.0e9
	}
	freqMax, err := readFreqKHz(filepath.Join(sysfsRoot, "devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"))
	if err != nil {
		logging.Warn("Cpuinfo", "max frequency unavailable, using default: %v", err)
		freqMax = sticker
	}

	values := map[string]float64{
		SignalFreqMin:     freqMin,
		SignalFreqMax:     freqMax,
		SignalFreqSticker: sticker,
		SignalFreqStep:    stepHz,
	}

	signals := make(map[string]provider.SignalDef, len(values))
	descriptions := map[string]string{
		SignalFreqMin:     "Minimum processor frequency",
		SignalFreqMax:     "Maximum processor frequency",
		SignalFreqSticker: "Processor base (sticker) frequency",
		SignalFreqStep:    "Step size between p-state frequencies",
	}
	for name := range values {
		signals[name] = provider.SignalDef{
			Domain: topology.DomainBoard,
			Meta: provider.Meta{
				Aggregation: provider.AggExpectSame,
				Description: descriptions[name],
				Behavior:    provider.BehaviorConstant,
			},
		}
	}

	return &provider.Base{
		ProviderName: "CPUINFO",
		Signals:      signals,
		Controls:     map[string]provider.ControlDef{},
		ReadFn: func(name string, domain topology.Domain, idx int) (float64, error) {
			v, ok := values[name]
			if !ok {
				return 0, fmt.Errorf("cpuinfo: unknown signal %q", name)
			}
			return v, nil
		},
		WriteFn: func(name string, domain topology.Domain, idx int, value float64) error {
			return fmt.Errorf("cpuinfo: %q is read-only", name)
		},
	}
}

// parseStickerFreq extracts the advertised frequency from the first
// "model name" line containing an "@ N.NNGHz" suffix, e.g.
// "Intel(R) Xeon(R) Gold 6138 CPU @ 2.00GHz".
func parseStickerFreq(procPath string) (float64, error) {
	f, err := os.Open(procPath)
	if err != nil {
		return 0, fmt.Errorf("cpuinfo: open %s: %w", procPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "model name") {
			continue
		}
		at := strings.LastIndexByte(line, '@')
		if at < 0 {
			continue
		}
		return parseFreqToken(strings.TrimSpace(line[at+1:]))
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("cpuinfo: scan %s: %w", procPath, err)
	}
	return 0, fmt.Errorf("cpuinfo: no model name frequency in %s", procPath)
}

// parseFreqToken converts "2.00GHz" / "2600MHz" into Hz.
func parseFreqToken(token string) (float64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(token, "GHz"):
		scale = 1e9
		token = strings.TrimSuffix(token, "GHz")
	case strings.HasSuffix(token, "MHz"):
		scale = 1e6
		token = strings.TrimSuffix(token, "MHz")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0, fmt.Errorf("cpuinfo: bad frequency token %q: %w", token, err)
	}
	return v * scale, nil
}

// readFreqKHz reads a one-line cpufreq sysfs file holding kHz and returns
// Hz.
func readFreqKHz(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cpuinfo: read %s: %w", path, err)
	}
	khz, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("cpuinfo: parse %s: %w", path, err)
	}
	return khz * 1000, nil
}
