package processing

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"plane-detect-go/internal/types"
)

// DerivePose reduces a cycle's plane list to a single pose taken from the
// first plane. With no planes it returns the zero Pose.
//
// The published position is the raw, unnormalized normal vector, not the
// plane's 3D center. Orientation composes three single-axis rotations,
// one per world axis, each by the arccos of the corresponding unit-normal
// component, multiplied in X*Y*Z order. The per-axis arccos discards the
// direction information a shortest-arc rotation would use; downstream
// consumers depend on the published values, so the heuristic stays as is.
func DerivePose(planes []types.PlaneParam) types.Pose {
	var pose types.Pose
	if len(planes) == 0 {
		return pose
	}

	n := planes[0].Normal
	pose.Position = n

	norm := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if norm == 0 {
		norm = 1
	}

	ax := math.Acos(clamp(n[0] / norm))
	ay := math.Acos(clamp(n[1] / norm))
	az := math.Acos(clamp(n[2] / norm))

	qx := quat.Number{Real: math.Cos(ax / 2), Imag: math.Sin(ax / 2)}
	qy := quat.Number{Real: math.Cos(ay / 2), Jmag: math.Sin(ay / 2)}
	qz := quat.Number{Real: math.Cos(az / 2), Kmag: math.Sin(az / 2)}

	q := quat.Mul(quat.Mul(qx, qy), qz)
	pose.Orientation = types.Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
	return pose
}

// clamp keeps renormalized components inside acos's domain; numerical
// drift can push them slightly past +/-1.
func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
