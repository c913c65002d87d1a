// Package domain implements the data-quality core of the farm survey ETL:
// measurement extraction from free-text station messages, survey column
// corrections, and per-station aggregation.
//
// # Station messages
//
// Field weather stations report as unstructured text, one message per row of
// the remote weather CSV:
//
//	"Rainfall: 12.5mm in the past hour"
//	"Temperature measured at 23.4C"
//	"Sensor offline, awaiting maintenance"
//
// An ordered pattern table maps a measurement kind to a regular expression
// whose first non-empty capturing group holds the numeric reading. Order is
// part of the contract: patterns are tried in table order and the first match
// wins, so ambiguous messages resolve by precedence, not by best match.
// Messages matching no pattern are normal (status chatter, free-form notes)
// and yield null Measurement/Value cells; the row is kept either way so
// station coverage stays visible downstream.
//
// # Survey corrections
//
// The upstream survey export has three known data-quality defects, corrected
// rather than rejected:
//
//   - The Annual_yield and Crop_type column labels are swapped (fixed by
//     frame.Swap, configured in the pipeline file).
//   - Crop_type carries misspelled aliases ("cassaval" for "cassava") and
//     stray surrounding whitespace. NormalizeCategories trims and maps known
//     aliases to canonical labels; unknown values pass through untouched.
//   - Elevation appears with flipped signs for some fields. AbsoluteValues
//     takes the absolute value; a negative elevation is a recording bug, not
//     an invalid record.
//
// # Aggregation
//
// AggregateMeans groups processed messages by (Weather_station_ID,
// Measurement) and takes the arithmetic mean of Value, pivoted with stations
// as rows and measurement kinds as columns. Pairs with no observations are
// absent from the result, never zero. Aggregating a frame that has not been
// through ProcessMessages is reported as [ErrNotProcessed] instead of
// producing a misleading empty table.
package domain
