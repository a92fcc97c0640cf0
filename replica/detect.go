package replica

import "context"
import "fmt"

import "github.com/klauspost/cpuid/v2"

import "github.com/neurlang/srtrain/ctxlog"

// Detect selects the replica group. A positive requested count is taken as
// is. Otherwise CUDA devices are counted when the binary is built with the
// cuda tag. More than one device yields a Synchronous group, otherwise
// Single. CPU cores are only logged.
func Detect(ctx context.Context, requested int) (Group, error) {
	logger := ctxlog.FromContext(ctx)
	if requested < 0 {
		return nil, fmt.Errorf("replica count must not be negative, got %d", requested)
	}

	logger.Debug("CPU detected.",
		"brand", cpuid.CPU.BrandName,
		"physical_cores", cpuid.CPU.PhysicalCores,
		"logical_cores", cpuid.CPU.LogicalCores,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"avx512", cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ))

	n := requested
	var names []string
	if n == 0 {
		devices, err := cudaDevices()
		if err != nil {
			logger.Warn("CUDA device enumeration failed, using a single replica.", "error", err)
		}
		names = devices
		n = len(devices)
	}
	if n <= 1 {
		logger.Info("Replica group selected.", "group", Single{}.String())
		return Single{}, nil
	}
	g, err := NewSynchronous(n, names...)
	if err != nil {
		return nil, err
	}
	logger.Info("Replica group selected.", "group", g.String())
	return g, nil
}
