// Package core holds the domain of the CSV insight service: uploaded files,
// parsed tables, model insights, and the per-session state machine that
// moves between them.
//
// It is independent of any transport. Web handlers, tests and tools drive
// it through [Service] and [Session].
//
// # Architecture
//
//   - Gate: loads the external capabilities (table parser, spreadsheet
//     encoder) once at startup and reports readiness.
//   - Session: an immutable [SessionState] replaced wholesale on every
//     transition. Analyze runs parse then analysis in the background.
//   - Store: in-memory sessions keyed by ID, expired when idle.
//   - AnalysisLimiter: bounds concurrent model calls across sessions.
//
// # State Machine
//
//	idle -> files_selected -> loading -> parsing_complete -> analysis_complete
//	                             \               \
//	                              +-> error <-----+
//
// SelectFiles is always allowed and makes any in-flight run stale. Clear is
// rejected while a run is in flight. Export never changes state.
//
// # Error Handling
//
// Pipeline failures never escape to callers; they become the error status
// plus a user-safe message. Precondition violations are returned as sentinel
// errors, and [MapError] turns any error into a coded [UserMessage].
package core
