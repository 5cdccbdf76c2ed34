// SPDX-License-Identifier: MPL-2.0

package vmconfig

import (
	"log/slog"
	"strings"
)

// separator terminates every token of a configuration name.
const separator = "-"

type (
	// slot is one optional position of the configuration-name grammar.
	// A slot either consumes exactly one of its tokens (followed by the
	// separator) or is absent.
	slot struct {
		name   string
		tokens []string
		// apply records the token in the options. It returns false for a
		// token the slot does not know how to interpret.
		apply func(o *Options, token string) bool
	}

	// Slot describes a grammar position for help output.
	Slot struct {
		Name   string
		Tokens []string
	}
)

// grammar lists the slots in precedence order. A configuration name is valid
// when the slots, taken left to right, consume it completely.
var grammar = []slot{
	{name: "native-architecture", tokens: []string{"native-architecture"}, apply: func(o *Options, _ string) bool {
		o.NativeArchitecture = true
		return true
	}},
	{name: "string-inlining", tokens: []string{"string-inlining"}, apply: func(o *Options, _ string) bool {
		o.StringInlining = true
		return true
	}},
	{name: "gate", tokens: []string{"gate"}, apply: func(o *Options, _ string) bool {
		o.Gate = true
		return true
	}},
	{name: "upx", tokens: []string{"upx"}, apply: func(o *Options, _ string) bool {
		o.UPX = true
		return true
	}},
	{name: "quickbuild", tokens: []string{"quickbuild"}, apply: func(o *Options, _ string) bool {
		o.QuickBuild = true
		return true
	}},
	{name: "gc", tokens: []string{"g1gc"}, apply: func(o *Options, token string) bool {
		if token != "g1gc" {
			return false
		}
		o.GC = GCG1
		return true
	}},
	{name: "llvm", tokens: []string{"llvm"}, apply: func(o *Options, _ string) bool {
		o.LLVM = true
		return true
	}},
	{name: "pgo mode", tokens: []string{"pgo", "pgo-ctx-insens"}, apply: func(o *Options, token string) bool {
		switch token {
		case "pgo":
			o.PGOInstrumentation = true
		case "pgo-ctx-insens":
			o.PGOInstrumentation = true
			o.PGOContextSensitive = false
		default:
			return false
		}
		return true
	}},
	// Reserved: accepted for compatibility, inlining is on by default.
	{name: "inliner", tokens: []string{"inline"}, apply: func(*Options, string) bool { return true }},
	{
		name:   "analysis context sensitivity",
		tokens: []string{"insens", "allocsens", "1obj", "2obj1h", "3obj2h", "4obj3h"},
		apply: func(o *Options, token string) bool {
			switch token {
			case "insens", "allocsens":
				o.AnalysisContextSensitivity = ContextSensitivity(token)
			case "1obj", "2obj1h", "3obj2h", "4obj3h":
				o.AnalysisContextSensitivity = ContextSensitivity("_" + token)
			default:
				return false
			}
			return true
		},
	},
	{name: "no inlining before analysis", tokens: []string{"no-inline"}, apply: func(o *Options, token string) bool {
		if token != "no-inline" {
			return false
		}
		o.NoInliningBeforeAnalysis = true
		return true
	}},
	{name: "jdk profiles mode", tokens: []string{"jdk-profiles-collect", "adopted-jdk-pgo"}, apply: func(o *Options, token string) bool {
		switch token {
		case "jdk-profiles-collect":
			o.JDKProfilesCollect = true
			o.PGOInstrumentation = true
		case "adopted-jdk-pgo":
			o.AdoptedJDKPGO = true
		default:
			return false
		}
		return true
	}},
	{name: "profile inference mode", tokens: []string{"profile-inference-feature-extraction"}, apply: func(o *Options, token string) bool {
		if token != "profile-inference-feature-extraction" {
			return false
		}
		o.ProfileInferenceFeatureExtraction = true
		o.PGOInstrumentation = true
		return true
	}},
	{name: "sampler", tokens: []string{"safepoint-sampler", "async-sampler"}, apply: func(o *Options, token string) bool {
		switch token {
		case "safepoint-sampler":
			o.Sampler = SamplerSafepoint
			o.PGOInstrumentation = true
		case "async-sampler":
			o.Sampler = SamplerAsync
		default:
			return false
		}
		return true
	}},
	{name: "optimization level", tokens: []string{"O0", "O1", "O2", "O3"}, apply: func(o *Options, token string) bool {
		switch level := OptimizationLevel(token); level {
		case OptimizationO0, OptimizationO1, OptimizationO2, OptimizationO3:
			o.OptimizationLevel = level
		default:
			return false
		}
		return true
	}},
	{name: "edition", tokens: []string{"ce", "ee"}, apply: func(o *Options, token string) bool {
		switch edition := Edition(token); edition {
		case EditionCE, EditionEE:
			o.Edition = edition
		default:
			return false
		}
		return true
	}},
}

// Parse derives the option set of a configuration name.
//
// The names "default", "default-ce" and "default-ee" bypass the grammar and
// only select the edition. Every other name must be consumed completely by
// the grammar slots in precedence order.
func Parse(name string) (Options, error) {
	if name == "" {
		return Options{}, ErrMissingConfigurationName
	}

	opts := defaultOptions(name)
	switch name {
	case "default":
		return opts, nil
	case "default-ce":
		opts.Edition = EditionCE
		return opts, nil
	case "default-ee":
		opts.Edition = EditionEE
		return opts, nil
	}

	chosen := make([]string, len(grammar))
	if !matchSlots(0, name+separator, chosen) {
		return Options{}, &InvalidConfigurationError{Name: name}
	}

	for i, token := range chosen {
		if token == "" {
			continue
		}
		s := grammar[i]
		if !s.apply(&opts, token) {
			return Options{}, &InvalidConfigurationError{Name: name, Slot: s.name, Value: token}
		}
		slog.Debug("configuration option enabled", "config", name, "slot", s.name, "value", token)
	}

	return opts, nil
}

// matchSlots tries to consume rest with grammar[i:]. Each slot prefers its
// tokens in declaration order and falls back to being absent, so the first
// complete assignment found is the one an ordered alternation would pick.
func matchSlots(i int, rest string, chosen []string) bool {
	if i == len(grammar) {
		return rest == ""
	}
	for _, token := range grammar[i].tokens {
		if strings.HasPrefix(rest, token+separator) {
			chosen[i] = token
			if matchSlots(i+1, rest[len(token)+len(separator):], chosen) {
				return true
			}
		}
	}
	chosen[i] = ""
	return matchSlots(i+1, rest, chosen)
}

// Grammar returns the grammar slots in precedence order.
func Grammar() []Slot {
	slots := make([]Slot, 0, len(grammar))
	for _, s := range grammar {
		slots = append(slots, Slot{Name: s.name, Tokens: append([]string(nil), s.tokens...)})
	}
	return slots
}
