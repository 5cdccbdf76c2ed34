// SPDX-License-Identifier: MPL-2.0

// Package benchconfig derives the build plan of a native-image benchmark:
// output paths, executable names, the argument partitions of the JVM
// command line, the base image build command, the stages the configuration
// cannot run, and the command of every stage.
package benchconfig
