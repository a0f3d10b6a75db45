package main

import (
	"fmt"
	"os"

	app "github.com/NunoMoura/dev-ops-sub000/internal"
	"github.com/NunoMoura/dev-ops-sub000/internal/cli"
	"github.com/NunoMoura/dev-ops-sub000/internal/core"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	env, err := core.LoadEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		os.Exit(1)
	}
	basePath := app.ResolveBasePath(env)

	a, err := app.NewApp(basePath, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing devops: %v\n", err)
		os.Exit(1)
	}

	err = cli.Execute()
	_ = a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
