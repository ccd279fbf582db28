// Package varset implements the typed variable specifications and
// sorted variable sets used throughout the renderer: primvars on a
// surface, variables packed into a grid, and the output variables
// written to a fragment all share this representation.
package varset

import "fmt"

// Type identifies the scalar kind of a variable.
type Type int

// Recognized variable types.
const (
	Float Type = iota
	Point
	Hpoint
	Vector
	Normal
	Color
	Matrix
	String
)

var typeNames = [...]string{
	Float: "float", Point: "point", Hpoint: "hpoint", Vector: "vector",
	Normal: "normal", Color: "color", Matrix: "matrix", String: "string",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// sizeForType returns the number of scalar float32 values a single
// element of the given type occupies.
func sizeForType(t Type) int {
	switch t {
	case Float, String:
		return 1
	case Point, Vector, Normal, Color:
		return 3
	case Hpoint:
		return 4
	case Matrix:
		return 16
	default:
		panic(fmt.Sprintf("varset: unknown type %d", t))
	}
}

// Spec is a (type, array_size, name) triple identifying a variable.
type Spec struct {
	Type      Type
	ArraySize int
	Name      string
}

// ScalarSize returns the number of scalar float32 values needed to
// store one instance of the variable (accounting for ArraySize).
func (s Spec) ScalarSize() int { return sizeForType(s.Type) * s.ArraySize }

// Less orders Specs by (name, type, arraySize), giving VarSpec values
// a total order suitable for sorted sets.
func (s Spec) Less(o Spec) bool {
	if s.Name != o.Name {
		return s.Name < o.Name
	}
	if s.Type != o.Type {
		return s.Type < o.Type
	}
	return s.ArraySize < o.ArraySize
}

func (s Spec) String() string {
	if s.ArraySize != 1 {
		return fmt.Sprintf("%s %s[%d]", s.Type, s.Name, s.ArraySize)
	}
	return fmt.Sprintf("%s %s", s.Type, s.Name)
}

// simple constructs a non-array Spec of the given type and name.
func simple(t Type, name string) Spec { return Spec{Type: t, ArraySize: 1, Name: name} }

// Standard, well-known variables, matching the closed set named in
// the renderer's data model.
var (
	P     = simple(Point, "P")
	N     = simple(Normal, "N")
	Ng    = simple(Normal, "Ng")
	I     = simple(Vector, "I")
	Cs    = simple(Color, "Cs")
	Cl    = simple(Color, "Cl")
	Os    = simple(Color, "Os")
	Oi    = simple(Color, "Oi")
	S     = simple(Float, "s")
	Tvar  = simple(Float, "t")
	U     = simple(Float, "u")
	V     = simple(Float, "v")
	Du    = simple(Float, "du")
	Dv    = simple(Float, "dv")
	DPdu  = simple(Vector, "dPdu")
	DPdv  = simple(Vector, "dPdv")
	E     = simple(Point, "E")
	Time  = simple(Float, "time")
	Ncomp = simple(Float, "ncomps")
	Alpha = simple(Float, "alpha")
	Ci    = simple(Color, "Ci")
	Z     = simple(Float, "z")
	St    = simple(Float, "st")
)
