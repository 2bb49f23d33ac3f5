// Package core holds the presentation logic shared by the web and CLI
// adapters of the supplier table editor.
//
// The table itself lives in package dataset; nothing here keeps table state.
// This package turns engine results into something a person can read and
// turns user input into engine calls:
//
//   - Error mapping: [MapError] converts a typed engine failure into a
//     [UserMessage] with a support code and a suggested action.
//   - Formatting: [FormatSize] and [FormatModified] render source file
//     metadata; [DisplayOrder] arranges columns for listings.
//   - Queries: [ParseFilter], [ParseFilterValue] and [ParseSort] read the
//     filter and sort syntax accepted by both adapters.
//   - Files: [Catalog] lists and resolves CSV files inside the data
//     directory, rejecting names that would escape it.
//
// A typical adapter flow:
//
//	path, err := catalog.Resolve(name)
//	if err != nil {
//	    return core.MapError(err)
//	}
//	if _, err := engine.Load(path); err != nil {
//	    return core.MapError(err)
//	}
//	engine.RecordSourceInfo(path)
package core
