//go:build cuda

package replica

import "fmt"

import "gorgonia.org/cu"

func cudaDevices() ([]string, error) {
	count, err := cu.NumDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		device, err := cu.GetDevice(i)
		if err != nil {
			return nil, fmt.Errorf("get device %d: %w", i, err)
		}
		name, err := device.Name()
		if err != nil {
			return nil, fmt.Errorf("device %d name: %w", i, err)
		}
		names = append(names, fmt.Sprintf("cuda:%d %s", i, name))
	}
	return names, nil
}
