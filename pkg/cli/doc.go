// Package cli provides shared helpers for the rvx command line:
// typed command errors and signal-aware contexts.
package cli
