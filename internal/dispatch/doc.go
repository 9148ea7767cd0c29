// Package dispatch runs one delivery batch: group the input, open one UI
// session, render and deliver each group in order, and return a report with
// exactly one outcome per group.
//
// A failure in one group never stops the run. Only a failure to bring the
// session up (launch, login) or the browser dying mid-run is fatal.
// Teardown of the session, the loaded rows and the staged input file happens
// on every exit path.
package dispatch
