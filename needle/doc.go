// Package needle defines the exact byte patterns a scan looks for.
//
// A [Needle] carries its pattern together with per-pattern policy: a
// happiness level (0-9) used for grouping and ordering results, and the
// number of context bytes to capture before and after each occurrence.
//
// Needles are collected into an immutable [Set]. The order of the set fixes
// the needle identifiers used by the matching engine and the output layout;
// it has no effect on which occurrences are found.
//
// # Loading
//
// Needle sets are usually loaded from a YAML file:
//
//	- name: "Example Needle 1"
//	  val: "48 65 6c 6c 6f"
//	  val_format: hex
//	  description_notes: "hello in hex"
//	  happiness_level: 5
//	  write_to_file: true
//
// See [LoadFile] and [ParseHex] for the accepted value formats.
package needle
