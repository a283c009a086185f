// Package metadata stores single-slot key/value records (the user record,
// the vault key, the sealed identity key) in the metadata table.
//
// Each slot holds exactly one value and Write overwrites it.
package metadata
