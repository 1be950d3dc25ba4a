// Package connectors holds the source readers that turn a codebase into
// the extracted file list handed to ingestion, plus the filter they share.
//
// Readers live in subpackages: filesystem (local directory, with a watcher),
// archive (zip upload) and github (repository tree).
package connectors
