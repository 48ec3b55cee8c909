// Package fileinfo parses file names into their sequence components and
// groups numbered files found on disk into frame sequences.
//
// A name such as "shot/render.0001-0100.dpx" splits into:
//
//	Dir    "shot/"
//	Base   "render."
//	Number "0001-0100"
//	Ext    ".dpx"
//
// With sequencing enabled the number becomes a sequence.Sequence and
// FileName(frame) produces the concrete per-frame path:
//
//	fi := fileinfo.Parse("shot/render.0001-0100.dpx", true)
//	fi.FileName(42) // "shot/render.0042.dpx"
//
// A number made only of '#' characters is a wildcard that Resolve matches
// against the files present in the directory.
package fileinfo
