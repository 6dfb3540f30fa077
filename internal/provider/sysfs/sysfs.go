// Package sysfs implements a provider backed by the Linux cpufreq sysfs
// tree, reading and writing the scaling_cur_freq / scaling_max_freq /
// scaling_min_freq files under /sys/devices/system/cpu/cpufreq/policyN.
// Each policy directory governs one or more logical CPUs, discovered
// from that directory's affected_cpus file.
package sysfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

const (
	SignalCurFreq  = "CPUFREQ::SCALING_CUR_FREQ"
	ControlMaxFreq = "CPUFREQ::SCALING_MAX_FREQ"
	ControlMinFreq = "CPUFREQ::SCALING_MIN_FREQ"

	defaultCpufreqDir = "/sys/devices/system/cpu/cpufreq"
)

// Driver is the sysfs-backed provider. CpuPolicy maps a logical CPU index
// to the policy directory that governs it.
type Driver struct {
	*provider.Base

	cpufreqDir string
	cpuPolicy  map[int]string
}

// New discovers the cpufreq policy layout under cpufreqDir (pass "" for
// the default /sys path) and constructs the provider. It is not an error
// for the directory to contain no policies; in that case the provider
// simply exposes no CPUs.
func New(cpufreqDir string) (*Driver, error) {
	if cpufreqDir == "" {
		cpufreqDir = defaultCpufreqDir
	}
	policy, err := discoverPolicies(cpufreqDir)
	if err != nil {
		return nil, fmt.Errorf("sysfs: %w", err)
	}

	d := &Driver{cpufreqDir: cpufreqDir, cpuPolicy: policy}
	d.Base = &provider.Base{
		ProviderName: "CPUFREQ_SYSFS",
		Signals: map[string]provider.SignalDef{
			SignalCurFreq: {Domain: topology.DomainCPU, Meta: provider.Meta{
				Aggregation: provider.AggAverage,
				Description: "Current scaling frequency reported by the kernel cpufreq governor",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		Controls: map[string]provider.ControlDef{
			ControlMaxFreq: {Domain: topology.DomainCPU, Meta: provider.Meta{
				Aggregation: provider.AggExpectSame,
				Description: "Maximum scaling frequency allowed by the governor",
				Behavior:    provider.BehaviorVariable,
			}},
			ControlMinFreq: {Domain: topology.DomainCPU, Meta: provider.Meta{
				Aggregation: provider.AggExpectSame,
				Description: "Minimum scaling frequency allowed by the governor",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		ReadFn:  d.read,
		WriteFn: d.write,
	}
	return d, nil
}

func discoverPolicies(cpufreqDir string) (map[int]string, error) {
	result := make(map[int]string)
	entries, err := os.ReadDir(cpufreqDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("read %s: %w", cpufreqDir, err)
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "policy") {
			continue
		}
		policyDir := filepath.Join(cpufreqDir, entry.Name())
		cpus, err := readCPUList(filepath.Join(policyDir, "affected_cpus"))
		if err != nil {
			return nil, err
		}
		for _, cpu := range cpus {
			result[cpu] = policyDir
		}
	}
	return result, nil
}

func readCPUList(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var cpus []int
	if scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			cpus = append(cpus, n)
		}
	}
	return cpus, scanner.Err()
}

func (d *Driver) policyFile(idx int, filename string) (string, error) {
	dir, ok := d.cpuPolicy[idx]
	if !ok {
		return "", fmt.Errorf("no cpufreq policy governs cpu %d", idx)
	}
	return filepath.Join(dir, filename), nil
}

func (d *Driver) read(name string, domain topology.Domain, idx int) (float64, error) {
	var file string
	switch name {
	case SignalCurFreq:
		file = "scaling_cur_freq"
	case ControlMaxFreq:
		file = "scaling_max_freq"
	case ControlMinFreq:
		file = "scaling_min_freq"
	default:
		return 0, fmt.Errorf("sysfs: unknown name %q", name)
	}
	path, err := d.policyFile(idx, file)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("sysfs: read %s: %w", path, err)
	}
	// cpufreq reports frequency in kHz.
	khz, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("sysfs: parse %s: %w", path, err)
	}
	return khz * 1000, nil
}

func (d *Driver) write(name string, domain topology.Domain, idx int, value float64) error {
	var file string
	switch name {
	case ControlMaxFreq:
		file = "scaling_max_freq"
	case ControlMinFreq:
		file = "scaling_min_freq"
	default:
		return fmt.Errorf("sysfs: unknown control %q", name)
	}
	path, err := d.policyFile(idx, file)
	if err != nil {
		return err
	}
	khz := strconv.FormatInt(int64(value/1000), 10)
	if err := os.WriteFile(path, []byte(khz), 0o644); err != nil {
		return fmt.Errorf("sysfs: write %s: %w", path, err)
	}
	return nil
}
