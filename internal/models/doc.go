// Package models defines the vault's data records: the user identity,
// per-category consents, collected location and browsing points, and sync
// bookkeeping.
package models
