// Package web carries the dashboard's templates and static assets inside the binary.
package web

import "embed"

// Templates holds layouts, partials and pages, parsed once by view.NewEngine.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static is served under /static/.
//
//go:embed static/**/*
var Static embed.FS
