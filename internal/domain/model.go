package domain

const (
	DefaultModelFile   = "resources/snowboy.umdl"
	DefaultHotword     = "snowboy"
	DefaultSensitivity = 0.5

	DefaultResource  = "resources/common.res"
	DefaultAudioGain = 1.0
	DefaultCommand   = "snowboy-detect"
)

const (
	EngineSpotter = "spotter"
	EngineVAD     = "vad"
)

// ModelSpec references one acoustic model file and the keyword labels it
// triggers. Unset fields inherit the built-in default when resolved.
type ModelSpec struct {
	File        string   `yaml:"file"`
	Hotwords    []string `yaml:"hotwords"`
	Sensitivity *float64 `yaml:"sensitivity"`
}

// DefaultModel returns a fresh copy of the built-in model.
func DefaultModel() ModelSpec {
	sensitivity := DefaultSensitivity
	return ModelSpec{
		File:        DefaultModelFile,
		Hotwords:    []string{DefaultHotword},
		Sensitivity: &sensitivity,
	}
}

func (m ModelSpec) clone() ModelSpec {
	out := ModelSpec{File: m.File}
	if m.Hotwords != nil {
		out.Hotwords = append([]string(nil), m.Hotwords...)
	}
	if m.Sensitivity != nil {
		v := *m.Sensitivity
		out.Sensitivity = &v
	}
	return out
}

// MergeModel overlays the set fields of override onto a new copy of base.
func MergeModel(base, override ModelSpec) ModelSpec {
	out := base.clone()
	if override.File != "" {
		out.File = override.File
	}
	if len(override.Hotwords) > 0 {
		out.Hotwords = append([]string(nil), override.Hotwords...)
	}
	if override.Sensitivity != nil {
		v := *override.Sensitivity
		out.Sensitivity = &v
	}
	return out
}

// ResolveModels returns max(1, len(specs)) models, each merged independently
// over the built-in default.
func ResolveModels(specs []ModelSpec) []ModelSpec {
	if len(specs) == 0 {
		return []ModelSpec{DefaultModel()}
	}
	out := make([]ModelSpec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, MergeModel(DefaultModel(), spec))
	}
	return out
}

// DetectorConfig is everything a detector needs to be built from scratch.
type DetectorConfig struct {
	Engine        string      `yaml:"engine"`
	Resource      string      `yaml:"resource"`
	AudioGain     *float64    `yaml:"audio_gain"`
	ApplyFrontend *bool       `yaml:"apply_frontend"`
	Command       string      `yaml:"command"`
	Args          []string    `yaml:"args"`
	VADMode       *int        `yaml:"vad_mode"`
	Models        []ModelSpec `yaml:"-"`
}

// DefaultDetectorConfig returns a fresh copy of the detector defaults with no
// models attached.
func DefaultDetectorConfig() DetectorConfig {
	gain := DefaultAudioGain
	frontend := false
	return DetectorConfig{
		Engine:        EngineSpotter,
		Resource:      DefaultResource,
		AudioGain:     &gain,
		ApplyFrontend: &frontend,
		Command:       DefaultCommand,
	}
}

// MergeDetectorConfig overlays overrides onto the defaults and attaches the
// resolved models. Neither argument is retained.
func MergeDetectorConfig(overrides DetectorConfig, models []ModelSpec) DetectorConfig {
	out := DefaultDetectorConfig()
	if overrides.Engine != "" {
		out.Engine = overrides.Engine
	}
	if overrides.Resource != "" {
		out.Resource = overrides.Resource
	}
	if overrides.AudioGain != nil {
		v := *overrides.AudioGain
		out.AudioGain = &v
	}
	if overrides.ApplyFrontend != nil {
		v := *overrides.ApplyFrontend
		out.ApplyFrontend = &v
	}
	if overrides.Command != "" {
		out.Command = overrides.Command
	}
	if len(overrides.Args) > 0 {
		out.Args = append([]string(nil), overrides.Args...)
	}
	if overrides.VADMode != nil {
		v := *overrides.VADMode
		out.VADMode = &v
	}
	out.Models = ResolveModels(models)
	return out
}

// Clone returns a deep copy so callers cannot reach into a listener's config.
func (c DetectorConfig) Clone() DetectorConfig {
	out := c
	if c.AudioGain != nil {
		v := *c.AudioGain
		out.AudioGain = &v
	}
	if c.ApplyFrontend != nil {
		v := *c.ApplyFrontend
		out.ApplyFrontend = &v
	}
	if c.VADMode != nil {
		v := *c.VADMode
		out.VADMode = &v
	}
	if c.Args != nil {
		out.Args = append([]string(nil), c.Args...)
	}
	if c.Models != nil {
		out.Models = make([]ModelSpec, len(c.Models))
		for i, m := range c.Models {
			out.Models[i] = m.clone()
		}
	}
	return out
}

// Hotwords flattens the keyword labels of all models in order. A detector
// reporting the n-th hotword refers to Hotwords()[n].
func (c DetectorConfig) Hotwords() []string {
	var out []string
	for _, m := range c.Models {
		out = append(out, m.Hotwords...)
	}
	return out
}
