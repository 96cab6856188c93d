// Package export serializes evidence items and their custody histories to
// JSON and CSV for discovery productions and court filings.
package export
