// Package cli provides shared helpers for the custodia command line:
// typed command errors and shutdown signal handling.
package cli
