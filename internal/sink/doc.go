// Package sink delivers extracted product records to their destinations.
// Records flow through an ordered list of stages (normalization,
// validation) and are then fanned out to one or more sinks (JSON Lines
// stream, SQLite database). The crawl engine only talks to the Pipeline.
package sink
