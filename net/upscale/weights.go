package upscale

import "compress/lzw"
import "encoding/json"
import "fmt"
import "os"

type weightsFile struct {
	Scale      int                  `json:"scale"`
	Channels   int                  `json:"channels"`
	Parameters map[string][]float64 `json:"parameters"`
}

// SaveWeights writes LZW-compressed JSON weights to path.
func (u *Upscaler) SaveWeights(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	lw := lzw.NewWriter(file, lzw.LSB, 8)
	wf := weightsFile{Scale: u.Scale, Channels: u.Channels, Parameters: map[string][]float64{}}
	for _, p := range u.Parameters() {
		wf.Parameters[p.Name] = p.Value.Data
	}
	err = json.NewEncoder(lw).Encode(wf)
	if cerr := lw.Close(); err == nil {
		err = cerr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadWeights reads weights written by SaveWeights. The geometry must match.
func (u *Upscaler) LoadWeights(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	lr := lzw.NewReader(file, lzw.LSB, 8)
	defer lr.Close()

	var wf weightsFile
	if err := json.NewDecoder(lr).Decode(&wf); err != nil {
		return fmt.Errorf("decode weights %s: %w", path, err)
	}
	if wf.Scale != u.Scale || wf.Channels != u.Channels {
		return fmt.Errorf("weights %s are for scale %d/%d channels, model is %d/%d", path, wf.Scale, wf.Channels, u.Scale, u.Channels)
	}
	for _, p := range u.Parameters() {
		data, ok := wf.Parameters[p.Name]
		if !ok || len(data) != p.Value.Len() {
			return fmt.Errorf("weights %s: parameter %s missing or mis-sized", path, p.Name)
		}
		copy(p.Value.Data, data)
	}
	return nil
}
