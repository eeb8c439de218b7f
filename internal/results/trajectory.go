package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/nsbh/kickmc/internal/dynamo"
)

// TrajectoryStore persists full center-of-mass trajectories of successful
// trials, one CSV per trial, named by a kick-speed label plus a short
// unique suffix.
type TrajectoryStore struct {
	dir string
}

func NewTrajectoryStore(dir string) (*TrajectoryStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &TrajectoryStore{dir: dir}, nil
}

// Save writes the trajectory under a label derived from the kick speed,
// e.g. vk0264_1a2b3c4d.csv, and returns the file path.
func (s *TrajectoryStore) Save(kickSpeed float64, times []float64, states []dynamo.State) (string, error) {
	if len(times) != len(states) {
		return "", fmt.Errorf("trajectory length mismatch: %d times, %d states", len(times), len(states))
	}

	name := fmt.Sprintf("vk%04.0f_%s.csv", kickSpeed, uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"t", "x", "y", "z", "vx", "vy", "vz"}); err != nil {
		return "", err
	}
	for i, st := range states {
		rec := make([]string, 0, 7)
		rec = append(rec, strconv.FormatFloat(times[i], 'g', 8, 64))
		for _, v := range st {
			rec = append(rec, strconv.FormatFloat(v, 'g', 8, 64))
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}
