//go:build !cuda

package replica

func cudaDevices() ([]string, error) {
	return nil, nil
}
