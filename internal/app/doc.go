// Package app wires the vault together: configuration, logging, storage,
// keys, the consent registry, both trackers and the sync service.
//
// The Coordinator keeps the trackers in line with the consent registry. It
// starts location tracking when the location consent is enabled, restarts it
// when granularity or background permission changes, and stops it when the
// consent is disabled. The browsing tracker is bound to or released from its
// consent the same way.
package app
