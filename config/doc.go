// Package config loads hierarchy definitions from YAML files. A file holds
// an optional defaults block plus one entry per agent; entries inherit
// unset fields from the defaults and every merged entry must pass
// core.NewConfig validation before it is returned.
package config
