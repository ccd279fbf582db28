// Package reyes is the renderer façade: Options configures a render,
// Renderer drives a Scene through tessellation, rasterization and
// filtering to a set of display sinks. Grounded on the teacher's
// engine.Config/DefaultConfig/Configure shape
// (_examples/gviegas-neo3/engine/engine.go), generalized from a
// real-time engine's global configuration to one offline render's
// options.
package reyes

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/reyesrender/core/filter"
	"github.com/reyesrender/core/rlog"
)

const optPrefix = "reyes: options: "

func newOptErr(reason string) error { return newErr(optPrefix + reason) }

// FilterSpec names a pixel filter kernel and its support width, in
// the TOML-friendly shape spec.md §6's `pixel_filter` option takes.
type FilterSpec struct {
	Kind   string  `toml:"kind"`
	WidthX float32 `toml:"width_x"`
	WidthY float32 `toml:"width_y"`
}

// Kernel resolves f to a filter.Kernel, or an error if Kind names
// none of the recognized filters (box, disc, gaussian, sinc).
func (f FilterSpec) Kernel() (filter.Kernel, error) {
	switch f.Kind {
	case "box":
		return filter.Box(f.WidthX, f.WidthY), nil
	case "disc":
		return filter.Disc(f.WidthX, f.WidthY), nil
	case "gaussian":
		return filter.Gaussian(f.WidthX, f.WidthY), nil
	case "sinc":
		return filter.Sinc(f.WidthX, f.WidthY), nil
	default:
		return nil, newOptErr("unrecognized pixel_filter kind " + f.Kind)
	}
}

// Options holds every renderer-wide control named in spec.md §6.
// The zero value is not valid; use DefaultOptions.
type Options struct {
	Resolution [2]int `toml:"resolution"`
	BucketSize [2]int `toml:"bucket_size"`
	SuperSamp  [2]int `toml:"super_samp"`

	PixelFilter FilterSpec `toml:"pixel_filter"`
	DoFilter    bool       `toml:"do_filter"`

	ClipNear float32 `toml:"clip_near"`
	ClipFar  float32 `toml:"clip_far"`

	ShutterMin float32 `toml:"shutter_min"`
	ShutterMax float32 `toml:"shutter_max"`

	Fstop         float32 `toml:"fstop"`
	FocalLength   float32 `toml:"focal_length"`
	FocalDistance float32 `toml:"focal_distance"`

	EyeSplits       int `toml:"eye_splits"`
	GridSize        int `toml:"grid_size"`
	InterleaveWidth int `toml:"interleave_width"`

	StatisticsVerbosity int `toml:"statistics_verbosity"`
	NumThreads          int `toml:"num_threads"`
}

// defaultEyeEpsilon is the ε spec.md §6 uses as clip_near's default:
// a plane near enough to the eye that geometry almost never needs to
// clip against it, but strictly positive so 1/z stays finite.
const defaultEyeEpsilon = 1e-4

// DefaultOptions returns the Options in effect with no overrides,
// matching spec.md §6's bracketed defaults column.
func DefaultOptions() Options {
	return Options{
		Resolution: [2]int{640, 480},
		BucketSize: [2]int{16, 16},
		SuperSamp:  [2]int{2, 2},

		PixelFilter: FilterSpec{Kind: "gaussian", WidthX: 2, WidthY: 2},
		DoFilter:    true,

		ClipNear: defaultEyeEpsilon,
		ClipFar:  float32PosInf,

		ShutterMin: 0,
		ShutterMax: 0,

		Fstop:         float32PosInf,
		FocalLength:   float32PosInf,
		FocalDistance: float32PosInf,

		EyeSplits:       20,
		GridSize:        16,
		InterleaveWidth: 6,

		StatisticsVerbosity: 0,
		NumThreads:          -1,
	}
}

// Load reads TOML options from path, starting from DefaultOptions so
// that a config file only needs to name the keys it overrides, then
// sanitizes the result.
func Load(path string, log rlog.Sink) (*Options, error) {
	opt := DefaultOptions()
	if _, err := toml.DecodeFile(path, &opt); err != nil {
		return nil, newOptErr("load " + path + ": " + err.Error())
	}
	opt.Sanitize(log)
	return &opt, nil
}

// Save writes o to path as TOML.
func (o *Options) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return newOptErr("save " + path + ": " + err.Error())
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(o); err != nil {
		return newOptErr("save " + path + ": " + err.Error())
	}
	return nil
}

// Sanitize clamps every option to its valid range in place, routing
// one Warning to log per value it had to adjust (per spec.md §6:
// "out-of-range values are clamped with a warning"). A nil log
// discards warnings silently.
func (o *Options) Sanitize(log rlog.Sink) {
	warn := func(reason string) {
		if log != nil {
			log.Log(rlog.Warning, "reyes.Options", reason)
		}
	}
	clampInt := func(v *int, min int, name string) {
		if *v < min {
			warn(name + " clamped to " + itoa(min))
			*v = min
		}
	}
	clampPair := func(v *[2]int, min int, name string) {
		clampInt(&v[0], min, name+"[0]")
		clampInt(&v[1], min, name+"[1]")
	}

	clampPair(&o.Resolution, 1, "resolution")
	clampPair(&o.BucketSize, 1, "bucket_size")
	clampPair(&o.SuperSamp, 1, "super_samp")

	if o.ClipNear < defaultEyeEpsilon {
		warn("clip_near clamped to epsilon")
		o.ClipNear = defaultEyeEpsilon
	}
	if o.ClipFar < o.ClipNear {
		warn("clip_far clamped to clip_near")
		o.ClipFar = o.ClipNear
	}
	if o.ShutterMax < o.ShutterMin {
		warn("shutter_max clamped to shutter_min")
		o.ShutterMax = o.ShutterMin
	}

	clampInt(&o.EyeSplits, 1, "eye_splits")
	clampInt(&o.GridSize, 1, "grid_size")
	clampInt(&o.InterleaveWidth, 1, "interleave_width")
	if o.StatisticsVerbosity < 0 {
		warn("statistics_verbosity clamped to 0")
		o.StatisticsVerbosity = 0
	}
	if o.NumThreads < -1 {
		warn("num_threads clamped to -1 (auto)")
		o.NumThreads = -1
	}
}

// DepthOfField reports whether a finite fstop enables depth of field,
// per spec.md §6 ("a finite fstop enables DoF").
func (o *Options) DepthOfField() bool {
	return !isInf(o.Fstop)
}
