// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

// TransformPt applies the affine point transform m to p,
// writing the result (after the homogeneous divide) to *r.
func TransformPt(r *V3, m *M4, p *V3) {
	var h V4
	h[0], h[1], h[2], h[3] = p[0], p[1], p[2], 1
	var o V4
	o.Mul(m, &h)
	iw := float32(1)
	if o[3] != 0 {
		iw = 1 / o[3]
	}
	r[0] = o[0] * iw
	r[1] = o[1] * iw
	r[2] = o[2] * iw
}

// TransformDir applies the linear part of m (no translation,
// no perspective divide) to v, writing the result to *r.
// Suitable for direction vectors such as dPdu/dPdv.
func TransformDir(r *V3, m *M4, v *V3) {
	var h V4
	h[0], h[1], h[2], h[3] = v[0], v[1], v[2], 0
	var o V4
	o.Mul(m, &h)
	r[0], r[1], r[2] = o[0], o[1], o[2]
}

// Translate builds a translation matrix.
func Translate(m *M4, x, y, z float32) {
	m.I()
	m[3][0], m[3][1], m[3][2] = x, y, z
}

// Scale builds a scaling matrix.
func Scale(m *M4, x, y, z float32) {
	m.I()
	m[0][0], m[1][1], m[2][2] = x, y, z
}

// CamToRaster composes the camera-to-raster transform from
// the camera-to-screen matrix supplied by the front end and
// the output resolution, per
//
//	cam_to_raster = cam_to_screen ·
//	    scale(0.5,-0.5,1) · translate(0.5,0.5,0) · scale(xres,yres,1)
//
// so the z that cam_to_screen produces passes through unchanged.
func CamToRaster(camToScreen *M4, xres, yres int) M4 {
	var half, trans, res M4
	Scale(&half, 0.5, -0.5, 1)
	Translate(&trans, 0.5, 0.5, 0)
	Scale(&res, float32(xres), float32(yres), 1)

	var t1, t2 M4
	t1.Mul(&trans, &half)
	t2.Mul(&res, &t1)
	var out M4
	out.Mul(&t2, camToScreen)
	return out
}
