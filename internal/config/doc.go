// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the --config file, else $XDG_CONFIG_HOME/nibench/config.cue
// (~/Library/Application Support/nibench on macOS, %APPDATA%\nibench on Windows), else
// ./config.cue, else defaults. Files are validated against the embedded #Config schema
// (config_schema.cue) before being merged into Viper.
//
// Besides host settings (output root, toolchain home, tool paths, metric sinks) the file
// may declare benchmark suites with their extra arguments and stdout metric rules.
package config
