package reyes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reyesrender/core/rlog"
)

type recordingSink struct{ reasons []string }

func (r *recordingSink) Log(sev rlog.Severity, component, reason string) {
	r.reasons = append(r.reasons, reason)
}

func TestDefaultOptionsNeedsNoSanitizing(t *testing.T) {
	opt := DefaultOptions()
	var rec recordingSink
	opt.Sanitize(&rec)
	if len(rec.reasons) != 0 {
		t.Fatalf("DefaultOptions triggered warnings: %v", rec.reasons)
	}
}

func TestSanitizeClampsOutOfRangeValues(t *testing.T) {
	opt := DefaultOptions()
	opt.Resolution = [2]int{0, -5}
	opt.SuperSamp = [2]int{0, 1}
	opt.ClipNear = -1
	opt.ClipFar = -10
	opt.EyeSplits = 0
	opt.GridSize = -3
	opt.NumThreads = -7

	var rec recordingSink
	opt.Sanitize(&rec)

	if opt.Resolution[0] != 1 || opt.Resolution[1] != 1 {
		t.Fatalf("resolution = %v, want clamped to (1,1)", opt.Resolution)
	}
	if opt.SuperSamp[0] != 1 {
		t.Fatalf("super_samp[0] = %d, want clamped to 1", opt.SuperSamp[0])
	}
	if opt.ClipNear != defaultEyeEpsilon {
		t.Fatalf("clip_near = %v, want %v", opt.ClipNear, defaultEyeEpsilon)
	}
	if opt.ClipFar != opt.ClipNear {
		t.Fatalf("clip_far = %v, want clamped to clip_near %v", opt.ClipFar, opt.ClipNear)
	}
	if opt.EyeSplits != 1 {
		t.Fatalf("eye_splits = %d, want clamped to 1", opt.EyeSplits)
	}
	if opt.GridSize != 1 {
		t.Fatalf("grid_size = %d, want clamped to 1", opt.GridSize)
	}
	if opt.NumThreads != -1 {
		t.Fatalf("num_threads = %d, want clamped to -1", opt.NumThreads)
	}
	if len(rec.reasons) == 0 {
		t.Fatal("expected warnings for every clamped field")
	}
}

func TestFilterSpecKernel(t *testing.T) {
	cases := []struct {
		kind    string
		wantErr bool
	}{
		{"box", false},
		{"disc", false},
		{"gaussian", false},
		{"sinc", false},
		{"nonsense", true},
	}
	for _, c := range cases {
		f := FilterSpec{Kind: c.kind, WidthX: 2, WidthY: 2}
		_, err := f.Kernel()
		if (err != nil) != c.wantErr {
			t.Errorf("Kernel() for %q: err = %v, wantErr %v", c.kind, err, c.wantErr)
		}
	}
}

func TestDepthOfField(t *testing.T) {
	opt := DefaultOptions()
	if opt.DepthOfField() {
		t.Fatal("default options should be a pinhole camera (infinite fstop)")
	}
	opt.Fstop = 1.4
	if !opt.DepthOfField() {
		t.Fatal("finite fstop should enable depth of field")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.toml")

	opt := DefaultOptions()
	opt.Resolution = [2]int{320, 240}
	opt.PixelFilter = FilterSpec{Kind: "box", WidthX: 1, WidthY: 1}
	if err := opt.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Resolution != opt.Resolution {
		t.Fatalf("resolution = %v, want %v", got.Resolution, opt.Resolution)
	}
	if got.PixelFilter != opt.PixelFilter {
		t.Fatalf("pixel_filter = %v, want %v", got.PixelFilter, opt.PixelFilter)
	}
}

func TestLoadRejectsMismatchedResolutionTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.toml")
	if err := os.WriteFile(path, []byte("[resolution]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A malformed partial file (array expected, table given) should
	// surface as an error rather than silently keeping defaults.
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error decoding a mismatched resolution table")
	}
}
