// Package cli implements the musicmoon command-line client. Each invocation
// restores the session from the local slot, runs one command against the
// identity and catalog stores, and persists the session again.
package cli
