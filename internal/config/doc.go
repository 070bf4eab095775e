// Package config loads the pagefx configuration document.
//
// JSON and YAML are accepted; both are decoded strictly so unknown keys fail
// early. PAGEFX_* environment variables may override selected fields, and
// Resolve turns the raw document into defaulted Settings.
package config
