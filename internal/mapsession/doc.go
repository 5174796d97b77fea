// Package mapsession owns the lifecycle of the map engine and its single
// live instance.
//
// The engine is loaded once per process and cached; instance creation,
// teardown and recreation all flow through the Manager so the rest of the
// system never holds a raw engine handle. Callers that need the live
// instance either take it non-blocking via Session or wait for the next
// successful initialisation via WaitForSession.
//
// Lifecycle:
//
//	unloaded -> loading_engine -> engine_ready -> initialising -> ready
//
// DestroySession returns the manager to engine_ready (the engine itself is
// never unloaded); Close moves it to destroyed permanently.
//
// Engine events are republished on the manager's own notification bus so
// subscribers survive instance recreation without resubscribing.
package mapsession
