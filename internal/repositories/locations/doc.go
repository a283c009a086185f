// Package locations persists recorded position fixes in location_data.
//
// Points are insert-only; the synced flag is the only column changed after
// insert. Unsynced reads are capped and ordered newest first.
package locations
