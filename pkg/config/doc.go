// Package config defines the RVX Relay configuration model and loading
// pipeline.
//
// Configuration is read from a YAML file, defaults are applied for any
// omitted fields, environment variables with the RVX_ prefix override
// file values, and the final configuration is validated. Validation is
// fail-fast: an invalid cache capacity, TTL, rate-limit window, or
// max-requests value aborts startup rather than surfacing during
// steady-state operation.
//
// A fsnotify-based Watcher can observe the configuration file and
// deliver reloaded, re-validated configurations to a callback, with
// debouncing to absorb editor write storms.
package config
