package shadow_map

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/chewxy/math32"
)

// LinearizeProjection rewrites a projection so that, once the vertex shader multiplies clip z by
// clip w, stored depth is (d - near) / (far - near) for view distance d.
//
// The depth row of a perspective projection gives clip z = Q*z + B and clip w = s*z with
// Q = p[10], B = p[14] and s = p[11]. The far distance is F = s*B / (s - Q), and dividing Q and B
// by F makes z/w linear in d. Both right-handed (s = -1) and left-handed (s = 1) matrices work.
// Orthographic projections (s = 0) are already linear and are returned unchanged.
//
// Parameters:
//   - p: a column-major projection matrix
//
// Returns:
//   - [16]float32: the linearized projection
//   - error: ErrInvalidProjection when the depth range is degenerate
func LinearizeProjection(p [16]float32) ([16]float32, error) {
	s := p[11]
	if s == 0 {
		if p[10] == 0 || !finite(p[10]) || !finite(p[14]) {
			return p, fmt.Errorf("%w: orthographic depth scale is %v", ErrInvalidProjection, p[10])
		}
		return p, nil
	}

	_, far, err := DepthRange(p)
	if err != nil {
		return p, err
	}

	out := p
	out[10] /= far
	out[14] /= far
	if !finite(out[10]) || !finite(out[14]) {
		return p, fmt.Errorf("%w: non-finite result", ErrInvalidProjection)
	}
	return out, nil
}

// DepthRange recovers the near and far view distances encoded in a projection matrix.
//
// Parameters:
//   - p: a column-major perspective or orthographic projection
//
// Returns:
//   - near: distance of the near plane along the view direction
//   - far: distance of the far plane along the view direction
//   - err: ErrInvalidProjection when the range is degenerate
func DepthRange(p [16]float32) (near, far float32, err error) {
	q, b, s := p[10], p[14], p[11]

	if s == 0 {
		if q == 0 {
			return 0, 0, fmt.Errorf("%w: orthographic depth scale is 0", ErrInvalidProjection)
		}
		aq := math32.Abs(q)
		near, far = -b/aq, (1-b)/aq
	} else {
		if q == 0 || q == s {
			return 0, 0, fmt.Errorf("%w: depth row (%v, %v) has no far plane", ErrInvalidProjection, q, b)
		}
		near = -s * b / q
		far = s * b / (s - q)
	}

	if !finite(near) || !finite(far) || far <= 0 || far == near {
		return 0, 0, fmt.Errorf("%w: depth range [%v, %v]", ErrInvalidProjection, near, far)
	}
	return near, far, nil
}

// ViewProjectionTextureMatrix maps world space to shadow map texture space: x and y in [0, 1] with v
// pointing down, and z the projected depth. It is T(0.5, 0.5, 0) * S(0.5, -0.5, 1) * projection * view.
//
// Parameters:
//   - view: the light view matrix
//   - projection: the light projection matrix
//
// Returns:
//   - [16]float32: the texture matrix
func ViewProjectionTextureMatrix(view, projection [16]float32) [16]float32 {
	var scale, translation [16]float32
	common.Scaling(scale[:], 0.5, -0.5, 1)
	common.Translation(translation[:], 0.5, 0.5, 0)
	return common.MulChain(translation, scale, projection, view)
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
