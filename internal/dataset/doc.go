// Package dataset provides the in-memory tabular engine behind the supplier
// table editor.
//
// The package owns exactly one loaded [Table] and one [SourceFileInfo] and is
// the only writer of either. It has no presentation dependencies and can be
// driven by the web UI, the CLI, or tests without modification.
//
// # Lifecycle
//
// A table is created by [Engine.Load] and replaced wholesale by the next
// successful load. Load is destructive: any unsaved edits made with
// [Engine.EditCell], [Engine.AddRows] or [Engine.DeleteRows] are discarded.
// File metadata is refreshed separately with [Engine.RecordSourceInfo], so
// callers can compose or skip the two steps independently:
//
//	eng := dataset.NewEngine(dataset.Config{})
//	if _, err := eng.Load(path); err != nil {
//	    return err
//	}
//	if _, err := eng.RecordSourceInfo(path); err != nil {
//	    return err
//	}
//
// # Row Indices
//
// Row indices are zero-based positions into the current row sequence, not
// stable identities. Deleting rows compacts the table and shifts every later
// row down. Callers that render a listing should re-read [Engine.Table] after
// every mutation rather than patching a cached copy.
//
// # Errors
//
// Every operation reports failure as an *[OpError] whose Kind is one of the
// sentinel errors ([ErrIOFailure], [ErrParseFailure], [ErrOutOfRange],
// [ErrUnknownColumn], [ErrSchemaMismatch], [ErrNoData], [ErrNoSchema],
// [ErrInvalidQuery]). Use errors.Is to test the kind and errors.As to read
// the path, row, column or line involved. The engine never produces
// user-facing text.
//
// # Concurrency
//
// An Engine is safe for concurrent use. Mutating operations hold an exclusive
// lock for their full duration; reads may run concurrently with each other.
package dataset
