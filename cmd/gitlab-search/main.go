// Package main provides the entry point for the gitlab-search CLI.
package main

import (
	"os"

	"github.com/shkmv/gitlab-search-cli/cmd/gitlab-search/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
