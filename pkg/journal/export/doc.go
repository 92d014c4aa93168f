// Package export writes journal entries as JSON or CSV.
//
// The JSON exporter writes an array of entries. The CSV exporter flattens
// each entry into one row; structured values are written as JSON and
// traversed rules are joined with ";".
package export
