// Package config loads the epubinfo TOML configuration file.
//
// Every field has a default, so a missing file is not an error. Values from
// the file override the defaults and are then normalised and validated.
package config
