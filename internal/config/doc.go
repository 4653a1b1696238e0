// Package config loads runtime configuration from multiple sources (an
// optional .env file, environment variables, YAML files, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// Besides server settings it carries the catalog source selection, the grid
// layout and the default cost policy used by every computation.
package config
