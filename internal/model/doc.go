// Package model holds the plain data types shared by every part of the
// event-driven simulation: particles, predicted events, the records an
// event resolution hands to observers, and the typed simulation errors.
//
// Particles and interactions are referenced by stable integer IDs. Nothing
// in this package holds a pointer to another entity.
package model
