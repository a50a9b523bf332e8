// Package assets embeds the default category catalog and SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed categories.txt sql/*.sql
var FS embed.FS

// Categories opens the embedded default catalog.
func Categories() (fs.File, error) {
	return FS.Open("categories.txt")
}

// Migrations returns the embedded migration files rooted at sql/.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
