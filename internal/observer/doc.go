// Package observer implements output plugins: engine observers that turn
// the executed event stream into statistics, stored logs and snapshots.
//
// Observers only read the records they are given. None of them streams
// particles or otherwise touches engine state, so attaching one never
// changes the trajectory of a run. The Snapshotter is the exception and
// says so.
package observer
