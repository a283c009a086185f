// Package browsing persists page visits in browsing_data.
package browsing
