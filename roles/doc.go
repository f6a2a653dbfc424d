// Package roles holds the organizational role roster used for candidate
// selection and participant normalization. A built-in default roster is
// provided; custom rosters load from YAML.
package roles
