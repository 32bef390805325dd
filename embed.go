// Package liftlog carries the assets bundled with the library.
package liftlog

import "embed"

// DataFS holds the bundled exercise dataset.
//
//go:embed data/exercises.json
var DataFS embed.FS
