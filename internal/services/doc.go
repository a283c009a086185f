// Package services contains the vault's application services.
//
//   - ConsentRegistry keeps an in-memory mirror of the consents table,
//     seeds the known categories, and notifies observers after every durable
//     mutation.
//   - UserService creates the single vault user on first launch and keeps
//     its last-sync time current.
//   - SyncService drains unsynced points through a Transmitter, marks them
//     synced and writes sync log bookkeeping.
//
// Services are defined as interfaces with unexported implementations and
// receive their collaborators (store, clock, logger) by constructor.
package services
