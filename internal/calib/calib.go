package calib

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CameraInfo holds the pinhole intrinsics shared by the depth and color
// streams. Both streams are required to be distortion-free and to share
// the same parameters; the descriptor is handed to the external detector
// untouched.
type CameraInfo struct {
	Width  int
	Height int
	Fx     float64
	Fy     float64
	Cx     float64
	Cy     float64
}

type matrixDoc struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data"`
}

type cameraInfoDoc struct {
	Width      int       `yaml:"image_width"`
	Height     int       `yaml:"image_height"`
	Matrix     matrixDoc `yaml:"camera_matrix"`
	Distortion matrixDoc `yaml:"distortion_coefficients"`
}

// Load reads a camera-info YAML descriptor. Nonzero distortion
// coefficients are rejected.
func Load(path string) (CameraInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CameraInfo{}, fmt.Errorf("read camera info %s: %w", path, err)
	}

	var doc cameraInfoDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return CameraInfo{}, fmt.Errorf("parse camera info %s: %w", path, err)
	}

	if doc.Width < 1 || doc.Height < 1 {
		return CameraInfo{}, fmt.Errorf("camera info %s: invalid image size %dx%d", path, doc.Width, doc.Height)
	}
	if doc.Matrix.Rows != 3 || doc.Matrix.Cols != 3 || len(doc.Matrix.Data) != 9 {
		return CameraInfo{}, fmt.Errorf("camera info %s: camera_matrix must be 3x3", path)
	}
	for _, d := range doc.Distortion.Data {
		if d != 0 {
			return CameraInfo{}, fmt.Errorf("camera info %s: distortion must be zero", path)
		}
	}

	return CameraInfo{
		Width:  doc.Width,
		Height: doc.Height,
		Fx:     doc.Matrix.Data[0],
		Fy:     doc.Matrix.Data[4],
		Cx:     doc.Matrix.Data[2],
		Cy:     doc.Matrix.Data[5],
	}, nil
}
