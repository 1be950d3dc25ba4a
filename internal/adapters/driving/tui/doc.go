// Package tui renders interactive terminal views with Bubbletea.
//
// The only view is the ingestion progress display used by the ingest and
// watch commands when stdout is a terminal. It runs the ingestion in a
// command, polls the orchestrator's status on a ticker and quits when the
// run reports back.
package tui
