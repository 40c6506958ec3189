// Package mission defines the archived summary of a completed team flow and
// the archives that persist it, either as JSON files or as database rows.
package mission
