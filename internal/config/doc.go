// Package config loads simulation configurations and turns them into ready
// engines.
//
// A configuration is a YAML or CUE document. Both formats are decoded,
// unified against the embedded CUE schema (schema.cue) that constrains
// types and ranges, and then cross-checked in Go: species, ranges and
// names must refer to things that exist. Build registers everything on a
// fresh engine.Engine.
//
// Particles come from an explicit list, from the lattice packer, or both;
// packed particles take the lowest IDs.
package config
