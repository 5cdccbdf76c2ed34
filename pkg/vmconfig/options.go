// SPDX-License-Identifier: MPL-2.0

package vmconfig

const (
	// GCDefault keeps the image's default garbage collector.
	GCDefault GCKind = ""
	// GCG1 selects the G1 collector (`--gc=G1`).
	GCG1 GCKind = "G1"

	// ContextInsensitive is the `insens` analysis.
	ContextInsensitive ContextSensitivity = "insens"
	// ContextAllocationSensitive is the `allocsens` analysis.
	ContextAllocationSensitive ContextSensitivity = "allocsens"
	// Context1Obj is the 1-object-sensitive analysis.
	Context1Obj ContextSensitivity = "_1obj"
	// Context2Obj1H is the 2-object 1-heap sensitive analysis.
	Context2Obj1H ContextSensitivity = "_2obj1h"
	// Context3Obj2H is the 3-object 2-heap sensitive analysis.
	Context3Obj2H ContextSensitivity = "_3obj2h"
	// Context4Obj3H is the 4-object 3-heap sensitive analysis.
	Context4Obj3H ContextSensitivity = "_4obj3h"

	// OptimizationO0 through OptimizationO3 map to `-O0` .. `-O3`.
	OptimizationO0 OptimizationLevel = "O0"
	OptimizationO1 OptimizationLevel = "O1"
	OptimizationO2 OptimizationLevel = "O2"
	OptimizationO3 OptimizationLevel = "O3"

	// SamplerSafepoint profiles with the safepoint sampler (implies PGO instrumentation).
	SamplerSafepoint SamplerKind = "safepoint"
	// SamplerAsync profiles with the JFR-based async sampler.
	SamplerAsync SamplerKind = "async"

	// EditionCE is the community edition.
	EditionCE Edition = "ce"
	// EditionEE is the enterprise edition.
	EditionEE Edition = "ee"
)

type (
	// GCKind is the garbage collector selected for the image.
	GCKind string

	// ContextSensitivity is the points-to analysis context sensitivity.
	// The object-sensitive variants carry a leading underscore, which is the
	// form the image builder expects.
	ContextSensitivity string

	// OptimizationLevel is the image optimization level. Empty keeps the default.
	OptimizationLevel string

	// SamplerKind is the profiling sampler used by the configuration.
	SamplerKind string

	// Edition is the toolchain edition the configuration targets.
	Edition string

	// Options is the option set derived from a configuration name.
	// Values are constructed by Parse and never modified afterwards.
	Options struct {
		// Name is the configuration name the options were parsed from.
		Name string

		PGOInstrumentation  bool
		PGOContextSensitive bool
		Gate                bool
		QuickBuild          bool
		StringInlining      bool
		LLVM                bool
		GC                  GCKind
		NativeArchitecture  bool
		UPX                 bool

		AnalysisContextSensitivity ContextSensitivity
		NoInliningBeforeAnalysis   bool
		OptimizationLevel          OptimizationLevel

		JDKProfilesCollect                bool
		AdoptedJDKPGO                     bool
		ProfileInferenceFeatureExtraction bool
		Sampler                           SamplerKind
		Edition                           Edition
	}
)

// defaultOptions returns the options of the `default` configuration.
func defaultOptions(name string) Options {
	return Options{Name: name, PGOContextSensitive: true}
}

// AsyncSampler reports whether the async sampler is enabled.
func (o Options) AsyncSampler() bool { return o.Sampler == SamplerAsync }

// SafepointSampler reports whether the safepoint sampler is enabled.
func (o Options) SafepointSampler() bool { return o.Sampler == SamplerSafepoint }
