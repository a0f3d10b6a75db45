// Package observability records what happens on a dev-ops board. Engine
// operations are appended to a JSON Lines event log under .dev_ops; metrics
// are derived on demand from that log, and alerts from the live board.
package observability
