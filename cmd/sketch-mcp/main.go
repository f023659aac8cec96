package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/ironsheep/sketch-tools-mcp/internal/cli"
	"github.com/ironsheep/sketch-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var Version = "dev"

func main() {
	// A missing .env is normal; a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	server.Version = Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cli.NewRootCmd(Version), fang.WithVersion(Version)); err != nil {
		stop()
		os.Exit(1)
	}
}
