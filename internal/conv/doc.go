// Package conv provides safe integer type conversion utilities.
//
// Sizes read from configuration files are uint64; buffer arithmetic uses int.
// The functions here reject values that do not fit instead of wrapping.
package conv
