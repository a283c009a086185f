// Package synclog records transmitted sync batches in sync_log.
package synclog
