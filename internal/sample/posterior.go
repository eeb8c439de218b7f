package sample

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadPosterior reads NS-mass posterior samples from a JSON file. Both a
// bare top-level array and an object with a "samples" array are accepted.
func LoadPosterior(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	arr := root
	if !root.IsArray() {
		arr = root.Get("samples")
		if !arr.IsArray() {
			return nil, fmt.Errorf("posterior file %s: expected an array or a \"samples\" array", path)
		}
	}

	values := arr.Array()
	if len(values) == 0 {
		return nil, fmt.Errorf("posterior file %s: no samples", path)
	}

	out := make([]float64, 0, len(values))
	for _, v := range values {
		m := v.Float()
		if m <= 0 {
			return nil, fmt.Errorf("posterior file %s: non-positive mass %g", path, m)
		}
		out = append(out, m)
	}
	return out, nil
}
