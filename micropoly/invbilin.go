package micropoly

import "github.com/reyesrender/core/linear"

// InvBilin computes the (u,v) parameter values of a bilinear patch
// A,B,C,D (in the cyclic order below) that map to a given 2D point,
// by two iterations of Newton's method on the residual
//
//	f(u,v) = A + u*E + v*F + u*v*G - P
//
// where E = B-A, F = C-A, G = A-B-C+D. This converges to three or
// four decimal places for the near-rectangular micropolygons Reyes
// dicing produces; see the original for the numerical analysis that
// justifies two iterations rather than a closed-form solve.
//
//	C---D
//	|   |
//	A---B
type InvBilin struct {
	a, e, f, g linear.V2
}

// Init resets the patch corners.
func (ib *InvBilin) Init(a, b, c, d linear.V2) {
	ib.a = a
	ib.e = linear.V2{b[0] - a[0], b[1] - a[1]}
	ib.f = linear.V2{c[0] - a[0], c[1] - a[1]}
	ib.g = linear.V2{a[0] - b[0] - c[0] + d[0], a[1] - b[1] - c[1] + d[1]}
}

func (ib *InvBilin) eval(u, v float32) linear.V2 {
	return linear.V2{
		ib.a[0] + u*ib.e[0] + v*ib.f[0] + u*v*ib.g[0],
		ib.a[1] + u*ib.e[1] + v*ib.f[1] + u*v*ib.g[1],
	}
}

// solve2x2 solves [[m00,m01],[m10,m11]] * [x,y] = [b0,b1].
func solve2x2(m00, m01, m10, m11, b0, b1 float32) (x, y float32) {
	det := m00*m11 - m01*m10
	if det == 0 {
		return 0, 0
	}
	inv := 1 / det
	x = (b0*m11 - m01*b1) * inv
	y = (m00*b1 - b0*m10) * inv
	return
}

// Eval returns the (u,v) parameter values mapping to p, starting the
// Newton iteration from the patch center.
func (ib *InvBilin) Eval(p linear.V2) linear.V2 {
	u, v := float32(0.5), float32(0.5)
	for i := 0; i < 2; i++ {
		cur := ib.eval(u, v)
		rx := cur[0] - p[0]
		ry := cur[1] - p[1]
		// Jacobian columns: d/du = E + v*G, d/dv = F + u*G
		j00 := ib.e[0] + v*ib.g[0]
		j10 := ib.e[1] + v*ib.g[1]
		j01 := ib.f[0] + u*ib.g[0]
		j11 := ib.f[1] + u*ib.g[1]
		du, dv := solve2x2(j00, j01, j10, j11, rx, ry)
		u -= du
		v -= dv
	}
	return linear.V2{u, v}
}
