// Package browsing records page visits as BrowsingPoints.
//
// A Tracker keeps at most one open session. Opening a new page, ending the
// session or stopping the tracker closes it; a closed session is persisted
// only when it lasted longer than DwellThreshold.
package browsing
