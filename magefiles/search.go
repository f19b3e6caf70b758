//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs a search for the comma-separated keywords in
// $KEYWORDS, e.g. KEYWORDS=hypertension,elderly mage search.
func Search() error {
	mg.Deps(Build)
	keywords := os.Getenv("KEYWORDS")
	if keywords == "" {
		return fmt.Errorf("set KEYWORDS to a comma-separated keyword list")
	}
	args := []string{"search", "--keywords", keywords}
	if sources := os.Getenv("SOURCES"); sources != "" {
		args = append(args, "--sources", sources)
	}
	return sh.RunV("./"+binDir+"/"+binName, args...)
}

// Serve builds the CLI and starts the HTTP server on $LISTEN (default :8080).
func Serve() error {
	mg.Deps(Build)
	args := []string{"serve"}
	if addr := os.Getenv("LISTEN"); addr != "" {
		args = append(args, "--listen", addr)
	}
	return sh.RunV("./"+binDir+"/"+binName, args...)
}
