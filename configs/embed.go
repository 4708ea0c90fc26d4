// Package configs provides the embedded configuration template for
// sharedash.
//
// The template is embedded at build time using go:embed so it is
// available in all distributions. It is written out by
// `sharedash init` to create a starter sharedash.yaml.
package configs

import _ "embed"

// ConfigTemplate is the example configuration written by `sharedash init`.
//
//go:embed sharedash.example.yaml
var ConfigTemplate string
