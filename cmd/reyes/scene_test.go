package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/rlog"
	"github.com/reyesrender/core/subdiv"
)

const flatQuadJSON = `{
	"screen_window": [-1, -1, 1, 1],
	"surfaces": [
		{
			"verts_per_face": [4],
			"vertex_indices": [0, 1, 2, 3],
			"p": [-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0],
			"cs": [1, 0, 0],
			"shading_rate": 4
		}
	]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSceneFileParsesMinimalScene(t *testing.T) {
	path := writeTemp(t, "scene.json", flatQuadJSON)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(desc.Surfaces) != 1 {
		t.Fatalf("expected one surface, got %d", len(desc.Surfaces))
	}
	if len(desc.ScreenWindow) != 4 {
		t.Fatalf("expected screen_window to round-trip, got %v", desc.ScreenWindow)
	}
}

func TestSceneDescBuildDefaultsCamToScreenToIdentity(t *testing.T) {
	path := writeTemp(t, "scene.json", flatQuadJSON)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := desc.build(rlog.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	want := [4][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	for c := 0; c < 4; c++ {
		if scene.CamToScreen[c] != want[c] {
			t.Fatalf("cam_to_screen = %v, want identity", scene.CamToScreen)
		}
	}
}

func TestSceneDescBuildSingleQuadProducesBilinearPatch(t *testing.T) {
	path := writeTemp(t, "scene.json", flatQuadJSON)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := desc.build(rlog.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Surfaces) != 1 {
		t.Fatalf("expected one surface, got %d", len(scene.Surfaces))
	}
	if _, ok := scene.Surfaces[0].Geom.(*geom.Bilinear); !ok {
		t.Fatalf("expected *geom.Bilinear, got %T", scene.Surfaces[0].Geom)
	}
	if scene.Surfaces[0].Attrs.ShadingRate != 4 {
		t.Fatalf("shading_rate = %v, want 4", scene.Surfaces[0].Attrs.ShadingRate)
	}
}

func TestSceneDescBuildSubdivideUsesSubdivMesh(t *testing.T) {
	const src = `{
		"surfaces": [{
			"verts_per_face": [4],
			"vertex_indices": [0, 1, 2, 3],
			"p": [-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0],
			"subdivide": true
		}]
	}`
	path := writeTemp(t, "scene.json", src)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := desc.build(rlog.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := scene.Surfaces[0].Geom.(*subdiv.Mesh); !ok {
		t.Fatalf("expected *subdiv.Mesh, got %T", scene.Surfaces[0].Geom)
	}
}

func TestSceneDescBuildMotionKeysPopulateKeysSlice(t *testing.T) {
	const src = `{
		"surfaces": [{
			"verts_per_face": [4],
			"vertex_indices": [0, 1, 2, 3],
			"p": [-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0],
			"motion": [[-1, -1, 1, 1, -1, 1, 1, 1, 1, -1, 1, 1]]
		}]
	}`
	path := writeTemp(t, "scene.json", src)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := desc.build(rlog.Discard{})
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Surfaces[0].Keys) != 2 {
		t.Fatalf("expected 2 motion keys, got %d", len(scene.Surfaces[0].Keys))
	}
	if scene.Surfaces[0].Geom != nil {
		t.Fatal("expected Geom unset when Keys is populated")
	}
}

func TestSceneDescBuildRejectsMismatchedScreenWindow(t *testing.T) {
	const src = `{"screen_window": [-1, -1, 1], "surfaces": []}`
	path := writeTemp(t, "scene.json", src)
	desc, err := loadSceneFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := desc.build(rlog.Discard{}); err == nil {
		t.Fatal("expected an error for a malformed screen_window")
	}
}
