package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/reyesrender/core"
	"github.com/reyesrender/core/attrs"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/rlog"
	"github.com/reyesrender/core/subdiv"
	"github.com/reyesrender/core/varset"
)

// sceneDesc is the on-disk JSON scene description cmd/reyes loads.
// Building a Scene from a scene-description language is out of scope
// for the renderer itself (reyes.Scene's own doc comment); this is a
// minimal, direct-construction front end, not a scene-file format in
// the RIB sense.
type sceneDesc struct {
	// CamToScreen is a 4x4 matrix in column-major order (16
	// values, column by column), matching linear.M4's own layout.
	// Omitted or empty means identity.
	CamToScreen []float32 `json:"cam_to_screen,omitempty"`

	// ScreenWindow is [xmin, ymin, xmax, ymax] in camera-space
	// screen coordinates. Defaults to [-1,-1,1,1].
	ScreenWindow []float32 `json:"screen_window,omitempty"`

	Surfaces []surfaceDesc `json:"surfaces"`
}

type surfaceDesc struct {
	// VertsPerFace/VertexIndices describe a polygon mesh's
	// topology; a surface with exactly one face of 4 vertices over 4
	// positions and Subdivide false is built as a geom.Bilinear patch
	// instead of a geom.PolyMesh, its corners gathered in the same
	// order geom.PolyMesh uses, since a single-quad PolyMesh and a
	// Bilinear patch then tessellate identically but Bilinear is
	// cheaper.
	VertsPerFace  []int `json:"verts_per_face"`
	VertexIndices []int `json:"vertex_indices"`

	// P is the control/shading vertex positions, one [3]float32
	// per vertex named in VertexIndices' domain, flattened.
	P []float32 `json:"p"`

	// Cs is an optional constant surface color; when absent, the
	// surface declares no Cs primvar.
	Cs *[3]float32 `json:"cs,omitempty"`

	// Subdivide runs one Catmull-Clark refinement pass
	// (package subdiv) over the control mesh before handing it to
	// the splitter, rather than treating VertsPerFace/VertexIndices
	// as the final polygon mesh directly.
	Subdivide bool `json:"subdivide,omitempty"`

	ShadingRate float32 `json:"shading_rate,omitempty"`
	Sides       int     `json:"sides,omitempty"`

	// Motion lists additional time-sample position sets ([3]float32
	// per vertex, flattened, same topology as P) for a
	// motion-blurred surface; P is always the first key.
	Motion [][]float32 `json:"motion,omitempty"`
}

func loadSceneFile(path string) (*sceneDesc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var desc sceneDesc
	if err := json.NewDecoder(f).Decode(&desc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &desc, nil
}

func (desc *sceneDesc) build(log rlog.Sink) (reyes.Scene, error) {
	scene := reyes.Scene{}

	scene.CamToScreen.I()
	if len(desc.CamToScreen) != 0 {
		m, err := matrixFromFlat(desc.CamToScreen)
		if err != nil {
			return scene, fmt.Errorf("cam_to_screen: %w", err)
		}
		scene.CamToScreen = m
	}

	scene.ScreenWindow = linear.Box2{Min: linear.V2{-1, -1}, Max: linear.V2{1, 1}}
	if len(desc.ScreenWindow) != 0 {
		if len(desc.ScreenWindow) != 4 {
			return scene, fmt.Errorf("screen_window: want 4 values, got %d", len(desc.ScreenWindow))
		}
		scene.ScreenWindow = linear.Box2{
			Min: linear.V2{desc.ScreenWindow[0], desc.ScreenWindow[1]},
			Max: linear.V2{desc.ScreenWindow[2], desc.ScreenWindow[3]},
		}
	}

	for i, sd := range desc.Surfaces {
		surf, err := sd.build(log)
		if err != nil {
			return scene, fmt.Errorf("surface %d: %w", i, err)
		}
		scene.Surfaces = append(scene.Surfaces, surf)
	}
	return scene, nil
}

func matrixFromFlat(v []float32) (linear.M4, error) {
	var m linear.M4
	if len(v) != 16 {
		return m, fmt.Errorf("want 16 values, got %d", len(v))
	}
	for c := 0; c < 4; c++ {
		copy(m[c][:], v[c*4:c*4+4])
	}
	return m, nil
}

func (sd *surfaceDesc) build(log rlog.Sink) (reyes.Surface, error) {
	var surf reyes.Surface

	at := attrs.Default()
	if sd.ShadingRate > 0 {
		at.ShadingRate = sd.ShadingRate
	}
	if sd.Sides > 0 {
		at.Sides = sd.Sides
	}
	surf.Attrs = at

	numVerts := len(sd.P) / 3
	if numVerts*3 != len(sd.P) {
		return surf, fmt.Errorf("p: length %d not a multiple of 3", len(sd.P))
	}

	decls := []struct {
		Spec  varset.Spec
		Class primvar.Class
	}{
		{varset.P, primvar.Vertex},
	}
	if sd.Cs != nil {
		decls = append(decls, struct {
			Spec  varset.Spec
			Class primvar.Class
		}{varset.Cs, primvar.Constant})
	}

	buildStore := func(positions []float32) (*primvar.Store, error) {
		if len(positions) != len(sd.P) {
			return nil, fmt.Errorf("motion key has %d position floats, want %d", len(positions), len(sd.P))
		}
		topo := primvar.Topology{
			Faces:     len(sd.VertsPerFace),
			Verts:     numVerts,
			Varying:   numVerts,
			FaceVerts: len(sd.VertexIndices),
		}
		s := primvar.NewStore(topo, decls)
		copy(s.Find(varset.P).Data, positions)
		if sd.Cs != nil {
			copy(s.Find(varset.Cs).Elem(0), sd.Cs[:])
		}
		return s, nil
	}

	makeGeom := func(positions []float32) (geom.Geometry, error) {
		// geom.Bilinear's corners run (u0v0, u1v0, u0v1, u1v1); a face
		// lists its corners cyclically, so the last two swap.
		vi := sd.VertexIndices
		quad := !sd.Subdivide && len(sd.VertsPerFace) == 1 && sd.VertsPerFace[0] == 4 &&
			numVerts == 4 && len(vi) == 4 && len(positions) == len(sd.P)
		if quad {
			corners := make([]float32, 0, len(positions))
			for _, k := range [4]int{vi[0], vi[1], vi[3], vi[2]} {
				if k < 0 || k >= 4 {
					quad = false
					break
				}
				corners = append(corners, positions[3*k:3*k+3]...)
			}
			if quad {
				positions = corners
			}
		}
		s, err := buildStore(positions)
		if err != nil {
			return nil, err
		}
		if sd.Subdivide {
			return subdiv.NewMesh(sd.VertsPerFace, sd.VertexIndices, s, log), nil
		}
		if quad {
			return geom.NewBilinear(s), nil
		}
		return geom.NewPolyMesh(sd.VertsPerFace, sd.VertexIndices, s, log), nil
	}

	if len(sd.Motion) == 0 {
		g, err := makeGeom(sd.P)
		if err != nil {
			return surf, err
		}
		surf.Geom = g
		return surf, nil
	}

	keys := make([]geom.Geometry, 0, 1+len(sd.Motion))
	first, err := makeGeom(sd.P)
	if err != nil {
		return surf, err
	}
	keys = append(keys, first)
	for i, m := range sd.Motion {
		g, err := makeGeom(m)
		if err != nil {
			return surf, fmt.Errorf("motion key %d: %w", i, err)
		}
		keys = append(keys, g)
	}
	surf.Keys = keys
	return surf, nil
}
