// Package config loads, defaults, validates, and watches the service
// configuration.
//
// Configuration is read from a YAML file, with environment variables of
// the form CUSTODIA_SECTION_FIELD taking precedence over file values.
// The file can be watched for changes to hot-reload the admissibility
// classifier without restarting the service.
package config
