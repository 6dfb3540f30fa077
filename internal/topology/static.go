package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Shape describes a uniform, symmetric machine layout: every board has the
// same number of packages, every package the same number of cores, and so
// on. Real HPC nodes are overwhelmingly built this way, and it lets Count/
// Nested be computed arithmetically instead of requiring an exhaustive
// enumeration in the config file.
type Shape struct {
	Boards           int `yaml:"boards"`
	PackagesPerBoard int `yaml:"packages_per_board"`
	CoresPerPackage  int `yaml:"cores_per_package"`
	ThreadsPerCore   int `yaml:"threads_per_core"`
	GPUsPerBoard     int `yaml:"gpus_per_board"`
	GPUChipsPerGPU   int `yaml:"gpu_chips_per_gpu"`
	MemoryPerBoard   int `yaml:"memory_per_board"`
}

// DefaultShape is a modest two-socket, dual-GPU node used when no topology
// file is supplied.
func DefaultShape() Shape {
	return Shape{
		Boards:           1,
		PackagesPerBoard: 2,
		CoresPerPackage:  16,
		ThreadsPerCore:   2,
		GPUsPerBoard:     2,
		GPUChipsPerGPU:   1,
		MemoryPerBoard:   2,
	}
}

// LoadShape reads a Shape from a YAML file at path; fields absent from
// the file keep their DefaultShape values.
func LoadShape(path string) (Shape, error) {
	shape := DefaultShape()
	data, err := os.ReadFile(path)
	if err != nil {
		return Shape{}, fmt.Errorf("topology: read shape file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &shape); err != nil {
		return Shape{}, fmt.Errorf("topology: parse shape file %s: %w", path, err)
	}
	return shape, nil
}

// StaticOracle answers topology queries from a fixed Shape, computed once
// at construction. This is the reference Oracle implementation used when
// no platform-probed topology is available (containers, simulators,
// tests).
type StaticOracle struct {
	shape  Shape
	counts map[Domain]int
}

// NewStaticOracle builds an Oracle over shape.
func NewStaticOracle(shape Shape) *StaticOracle {
	boards := max1(shape.Boards)
	packages := boards * max1(shape.PackagesPerBoard)
	cores := packages * max1(shape.CoresPerPackage)
	cpus := cores * max1(shape.ThreadsPerCore)
	gpus := boards * max1(shape.GPUsPerBoard)
	gpuChips := gpus * max1(shape.GPUChipsPerGPU)
	memory := boards * max1(shape.MemoryPerBoard)

	return &StaticOracle{
		shape: shape,
		counts: map[Domain]int{
			DomainBoard:   boards,
			DomainPackage: packages,
			DomainCore:    cores,
			DomainCPU:     cpus,
			DomainGPU:     gpus,
			DomainGPUChip: gpuChips,
			DomainMemory:  memory,
		},
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Count implements Oracle.
func (o *StaticOracle) Count(d Domain) (int, error) {
	n, ok := o.counts[d]
	if !ok {
		return 0, fmt.Errorf("topology: unknown domain %v", d)
	}
	return n, nil
}

// Nested implements Oracle. Because the shape is uniform, the nested
// indices for any (inner, outer, outerIdx) triple are a contiguous span of
// size count(inner)/count(outer) starting at outerIdx*span.
func (o *StaticOracle) Nested(inner, outer Domain, outerIdx int) ([]int, bool, error) {
	if !Contains(inner, outer) {
		return nil, false, nil
	}
	innerCount, err := o.Count(inner)
	if err != nil {
		return nil, false, err
	}
	outerCount, err := o.Count(outer)
	if err != nil {
		return nil, false, err
	}
	if outerIdx < 0 || outerIdx >= outerCount {
		return nil, false, fmt.Errorf("topology: outer index %d out of range [0,%d)", outerIdx, outerCount)
	}
	if outerCount == 0 || innerCount%outerCount != 0 {
		return nil, false, fmt.Errorf("topology: non-uniform nesting of %v in %v", inner, outer)
	}
	span := innerCount / outerCount
	indices := make([]int, span)
	base := outerIdx * span
	for i := range indices {
		indices[i] = base + i
	}
	return indices, true, nil
}
