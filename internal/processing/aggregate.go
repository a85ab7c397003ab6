package processing

import "plane-detect-go/internal/types"

// Aggregate flattens one cycle's plane parameters into the wire-ready
// PlanesResult. Planes keep their detector order; nothing is filtered,
// deduplicated, or reordered here.
func Aggregate(planes []types.PlaneParam) types.PlanesResult {
	res := types.PlanesResult{
		N:         len(planes),
		Norms:     make([]float64, 0, 3*len(planes)),
		Center3D:  make([]float64, 0, 3*len(planes)),
		Center2D:  make([]float64, 0, 2*len(planes)),
		MaskColor: make([]uint8, 0, 3*len(planes)),
	}
	for _, p := range planes {
		res.Norms = append(res.Norms, p.Normal[0], p.Normal[1], p.Normal[2])
		res.Center3D = append(res.Center3D, p.Center3D[0], p.Center3D[1], p.Center3D[2])
		res.Center2D = append(res.Center2D, p.Center2D[0], p.Center2D[1])
		res.MaskColor = append(res.MaskColor, p.MaskColor[0], p.MaskColor[1], p.MaskColor[2])
	}
	return res
}
