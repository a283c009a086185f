// Package location records position fixes while the location consent is
// enabled.
//
// The lifecycle is a tagged state plus a pure transition function (see
// Next), so transitions can be tested without any platform dependency:
//
//	Idle ──start──▶ AwaitingPermission ──granted──▶ TrackingForeground
//	                       │                      └▶ TrackingBackground
//	                       └──denied──▶ Stopped ◀──stop── Tracking*
//
// Stopped is re-enterable through another start. Tracker is the imperative
// shell that executes the effects Next asks for against a FixSource (the
// platform's pushed position stream) and a Permissions provider.
package location
