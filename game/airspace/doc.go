// Package airspace turns polygon no-fly zones into grid cells and exports
// missions as GeoJSON.
//
// Zones use grid coordinates: x is the column and y the row, so the cell
// (row, col) covers [col, col+1) x [row, row+1) and its centre is at
// (col+0.5, row+0.5). A cell becomes no-fly when its centre falls inside a zone.
package airspace
