// SPDX-License-Identifier: MPL-2.0

// Package vmconfig parses benchmark configuration names into option sets.
//
// A configuration name is a dash-delimited list of tokens such as
// "gate-g1gc-pgo-O2-ce". The grammar is an ordered list of optional slots
// (native-architecture, string-inlining, gate, upx, quickbuild, gc, llvm,
// pgo mode, inliner, analysis context sensitivity, no-inline, jdk profiles
// mode, profile inference, sampler, optimization level, edition). A name is
// valid only when the slots, in that order, consume every token.
package vmconfig
