// Package model holds the data shared by the dispatch pipeline: the loaded
// input table, recipient groups, the per-group delivery unit and the
// delivery report produced by one run.
package model
