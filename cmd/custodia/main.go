// Custodia is an evidence custody ledger for legal practices.
//
// Every evidence item carries an append-only, hash-chained record of
// custody events, so any tampering with the history is detectable and the
// chain can be produced in discovery.
//
// Usage:
//
//	# Start the API server with default configuration
//	custodia run
//
//	# Start with a custom configuration file
//	custodia run --config /etc/custodia/config.yaml
//
//	# Verify every custody chain in the database
//	custodia verify
//
//	# Query the evidence collection
//	custodia query --case-id CASE-2041 --admissibility admissible
//
//	# Show version information
//	custodia version
package main

func main() {
	Execute()
}
