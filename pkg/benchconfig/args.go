// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"slices"
	"strings"
)

const (
	splitRunFlag       = "--split-run"
	jvmArgsPrependFlag = "--jvmArgsPrepend"
	// harnessPropertyMarker marks properties aimed at the benchmark harness
	// itself. They never reach the benchmark.
	harnessPropertyMarker = "-Dnative-image"
)

var (
	// supportedVMArgPrefixes is intentionally restrictive: every VM argument
	// forwarded to the image builder must be known to work there.
	supportedVMArgPrefixes = []string{
		"-D", "-Xmx", "-Xmn", "-XX:-PrintGC", "-XX:+PrintGC",
		"--add-opens", "--add-modules", "--add-exports", "--add-reads",
	}

	// spaceSeparatedVMOptions take their value as the following argument.
	// An option missing from this list makes its value look like the
	// executable, so additions to the launcher must be mirrored here.
	spaceSeparatedVMOptions = []string{
		"-mp", "-modulepath", "-limitmods", "-addmods", "-upgrademodulepath", "-m",
		"--module-path", "--limit-modules", "--add-modules", "--upgrade-module-path",
		"--module", "--module-source-path", "--add-exports", "--add-opens", "--add-reads",
		"--patch-module", "--boot-class-path", "--source-path", "-cp", "-classpath", "-p",
	}
)

// Arguments is the partition of a benchmark's JVM command line.
type Arguments struct {
	// Executable is the main class or module, or `-jar <file>`.
	Executable []string
	// Classpath holds classpath options with their values.
	Classpath []string
	// Modulepath holds module path options with their values.
	Modulepath []string
	// SystemProperties holds every `-D` VM argument.
	SystemProperties []string
	// ImageVMArgs holds the remaining supported VM arguments.
	ImageVMArgs []string
	// ImageRunArgs holds everything after the executable.
	ImageRunArgs []string
	// SplitRun is the split-run audit log path given with --split-run.
	SplitRun string
}

// SupportedVMArgPrefixes returns the VM argument prefixes accepted by ExtractArguments.
func SupportedVMArgPrefixes() []string { return slices.Clone(supportedVMArgPrefixes) }

// ExtractArguments partitions a JVM command line.
//
// `--split-run <path>` is consumed, every argument containing
// `-Dnative-image` is dropped (also from the value of --jvmArgsPrepend),
// and the rest is split at the executable into VM arguments and run
// arguments. VM arguments are further split into classpath, module path,
// system properties and image VM arguments.
func ExtractArguments(args []string) (Arguments, error) {
	var out Arguments

	clean := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, splitRunFlag):
			if i+1 >= len(args) {
				return Arguments{}, &ArgumentParsingError{Arg: arg, Reason: "missing audit log path"}
			}
			out.SplitRun = args[i+1]
			i++
		case strings.HasPrefix(arg, jvmArgsPrependFlag) && i+1 < len(args):
			clean = append(clean, arg, stripHarnessProperties(args[i+1]))
			i++
		default:
			clean = append(clean, arg)
		}
	}
	clean = slices.DeleteFunc(clean, func(a string) bool { return strings.Contains(a, harnessPropertyMarker) })

	vmArgs, executable, runArgs, err := splitVMArguments(clean)
	if err != nil {
		return Arguments{}, err
	}
	out.Executable = executable
	out.ImageRunArgs = runArgs

	for _, a := range vmArgs {
		if strings.HasPrefix(a, "-D") {
			out.SystemProperties = append(out.SystemProperties, a)
		}
	}

	for i := 0; i < len(vmArgs); {
		arg := vmArgs[i]
		switch {
		case strings.HasPrefix(arg, "--class-path"):
			out.Classpath = append(out.Classpath, arg)
			i++
		case strings.HasPrefix(arg, "-cp"), strings.HasPrefix(arg, "-classpath"):
			value, err := optionValue(vmArgs, i)
			if err != nil {
				return Arguments{}, err
			}
			out.Classpath = append(out.Classpath, arg, value)
			i += 2
		case strings.HasPrefix(arg, "-p"), strings.HasPrefix(arg, "-modulepath"):
			value, err := optionValue(vmArgs, i)
			if err != nil {
				return Arguments{}, err
			}
			out.Modulepath = append(out.Modulepath, arg, value)
			i += 2
		default:
			if !hasSupportedPrefix(arg) {
				return Arguments{}, &ArgumentParsingError{
					Arg:    arg,
					Reason: "unsupported argument, supported prefixes are " + strings.Join(supportedVMArgPrefixes, " "),
				}
			}
			if slices.Contains(spaceSeparatedVMOptions, arg) {
				value, err := optionValue(vmArgs, i)
				if err != nil {
					return Arguments{}, err
				}
				out.ImageVMArgs = append(out.ImageVMArgs, arg, value)
				i += 2
				continue
			}
			out.ImageVMArgs = append(out.ImageVMArgs, arg)
			i++
		}
	}

	return out, nil
}

// splitVMArguments finds the executable: `-jar <file>` or the first argument
// not starting with a dash. Space-separated options skip their value.
func splitVMArguments(args []string) (vmArgs, executable, runArgs []string, err error) {
	for i := 0; i < len(args); {
		arg := args[i]
		switch {
		case arg == "-jar":
			if i+1 >= len(args) {
				return nil, nil, nil, &ArgumentParsingError{Arg: arg, Reason: "missing jar file"}
			}
			return args[:i], args[i : i+2], args[i+2:], nil
		case !strings.HasPrefix(arg, "-"):
			return args[:i], args[i : i+1], args[i+1:], nil
		case slices.Contains(spaceSeparatedVMOptions, arg):
			i += 2
		default:
			i++
		}
	}
	return nil, nil, nil, &ArgumentParsingError{Reason: "no executable found in arguments", Args: args}
}

func optionValue(args []string, i int) (string, error) {
	if i+1 >= len(args) {
		return "", &ArgumentParsingError{Arg: args[i], Reason: "missing option value"}
	}
	return args[i+1], nil
}

func hasSupportedPrefix(arg string) bool {
	for _, p := range supportedVMArgPrefixes {
		if strings.HasPrefix(arg, p) {
			return true
		}
	}
	return false
}

// stripHarnessProperties removes harness properties from a space-separated JVM argument string.
func stripHarnessProperties(value string) string {
	parts := strings.Split(value, " ")
	parts = slices.DeleteFunc(parts, func(p string) bool { return strings.Contains(p, harnessPropertyMarker) })
	return strings.Join(parts, " ")
}
