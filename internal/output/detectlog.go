package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"plane-detect-go/internal/types"
)

// DetectionLog appends one CSV row per detected plane per cycle, for
// offline inspection of a run.
type DetectionLog struct {
	mu    sync.Mutex
	f     *os.File
	cycle int
}

func NewDetectionLog(outputDir string) (*DetectionLog, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_planes.csv", Timestamp()))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(f, "cycle, frame_id, plane, nx, ny, nz, cx, cy, cz, px, py, r, g, b"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &DetectionLog{f: f}, nil
}

func (d *DetectionLog) WriteCycle(frameID int, planes []types.PlaneParam) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return fmt.Errorf("detection log is closed")
	}
	d.cycle++
	for i, p := range planes {
		_, err := fmt.Fprintf(
			d.f,
			"%d, %d, %d, %.6f, %.6f, %.6f, %.6f, %.6f, %.6f, %.1f, %.1f, %d, %d, %d\n",
			d.cycle,
			frameID,
			i+1,
			p.Normal[0], p.Normal[1], p.Normal[2],
			p.Center3D[0], p.Center3D[1], p.Center3D[2],
			p.Center2D[0], p.Center2D[1],
			p.MaskColor[0], p.MaskColor[1], p.MaskColor[2],
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *DetectionLog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func Timestamp() string {
	return time.Now().Format("20060102_150405")
}
