package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/afero"

	"github.com/absfs/convfs/internal/cli"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = ""

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCommand(afero.NewOsFs())
	if err := fang.Execute(ctx, root, fang.WithVersion(version())); err != nil {
		stop()
		os.Exit(1)
	}
}
