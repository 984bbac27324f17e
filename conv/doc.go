// Package conv coerces scalar values produced by object readers and JSON text
// drivers (bool, float64, string) into declared Go types: integers, unsigned
// integers, floats, strings, bools, time.Time and pointers to them.
// Custom conversions can be registered per source/destination type.
package conv
