// Package ingestion provides a pipeline that loads many statement sources
// into one storage.
//
// Sources are decoded concurrently on a worker pool. Decoded statements are
// handed over a channel to the calling goroutine, which is the only one that
// touches the storage, and are stored with Storage.AddStatements.
//
// A source that fails to open or decode is reported as a *SourceError; the
// statements it produced before failing stay stored and the other sources
// are unaffected. A storage failure stops the whole run.
package ingestion
