// Package metrics scores flown or planned drone paths.
//
// Nothing here feeds back into planning. The functions take a path as a list
// of cells starting at the drone's first position and report turn counts,
// safety against the grid, a straight-versus-turn energy breakdown and a
// comparison against a random-walk baseline flown with the same battery.
package metrics
