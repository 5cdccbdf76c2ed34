// SPDX-License-Identifier: MPL-2.0

package vmconfig

import "slices"

var (
	optimizationLevels = []string{"O0", "O1", "O2", "O3"}

	contextSensitivities = []string{"insens", "allocsens", "1obj", "2obj1h", "3obj2h", "4obj3h"}

	// javaHomeConfigs run against an installed toolchain instead of a built one.
	javaHomeConfigs = []string{"default", "pgo", "g1gc", "g1gc-pgo", "upx", "upx-g1gc", "quickbuild", "quickbuild-g1gc"}
)

// RegisteredNames returns the catalogue of configuration names offered for
// the given edition, followed by the edition-less names used with an
// installed toolchain. Every returned name parses.
func RegisteredNames(edition Edition) []string {
	suffix := string(edition)

	withoutInlining := make([]string, 0, len(contextSensitivities))
	for _, cs := range contextSensitivities {
		withoutInlining = append(withoutInlining, cs+"-no-inline")
	}

	var names []string

	mainConfigs := slices.Concat([]string{"default", "gate", "llvm", "native-architecture"}, contextSensitivities, withoutInlining)
	for _, main := range mainConfigs {
		names = append(names, main+"-"+suffix)
	}

	leveled := slices.Concat([]string{"llvm", "native-architecture", "g1gc", "native-architecture-g1gc", ""}, contextSensitivities, withoutInlining)
	for _, main := range leveled {
		for _, level := range optimizationLevels {
			if main == "" {
				names = append(names, level+"-"+suffix)
				continue
			}
			names = append(names, main+"-"+level+"-"+suffix)
		}
	}

	return append(names, javaHomeConfigs...)
}
