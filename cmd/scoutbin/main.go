package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scout-sh/scoutbin/internal/config"
	"github.com/scout-sh/scoutbin/internal/logger"
	"github.com/scout-sh/scoutbin/internal/manager"
	"github.com/scout-sh/scoutbin/internal/platform"
)

// version is injected at build time via -ldflags
var version = "dev"

func main() {
	debugMode := false
	for _, arg := range os.Args {
		if arg == "--debug" {
			debugMode = true
		}
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("scoutbin v%s\n", version)
			os.Exit(0)
		case "help", "--help", "-h":
			showHelp()
			os.Exit(0)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}

	mgr := manager.New(cfg)
	logger.Setup(cfg.LogLevel, mgr.CacheDir())

	ctx := context.Background()

	command := "resolve"
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		command = os.Args[1]
	}

	switch command {
	case "resolve":
		runResolve(ctx, mgr)
	case "status":
		runStatus(ctx, mgr)
	case "install":
		pinned := ""
		force := false
		for i, arg := range os.Args[2:] {
			switch arg {
			case "--version":
				if i+3 <= len(os.Args)-1 {
					pinned = os.Args[i+3]
				}
			case "--force", "-f":
				force = true
			}
		}
		runInstall(ctx, mgr, manager.Options{Version: pinned, ForceRefresh: force})
	case "update":
		force := false
		for _, arg := range os.Args[2:] {
			if arg == "--force" || arg == "-f" {
				force = true
			}
		}
		runUpdate(ctx, mgr, manager.Options{ForceRefresh: force})
	case "purge":
		runPurge(mgr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showHelp()
		os.Exit(1)
	}
}

func runResolve(ctx context.Context, mgr *manager.Manager) {
	path, err := mgr.Resolve(ctx, manager.Options{})
	if err != nil {
		printError(fmt.Sprintf("No usable scout binary: %v", err))
		os.Exit(1)
	}
	fmt.Println(path)
}

func runStatus(ctx context.Context, mgr *manager.Manager) {
	status := mgr.Status(ctx)

	rows := [][2]string{
		{"Available", fmt.Sprintf("%v", status.Available)},
		{"Source", status.Source},
	}
	if status.Available {
		rows = append(rows,
			[2]string{"Path", status.Path},
			[2]string{"Version", status.Version},
		)
	}
	if details, err := platform.Details(ctx); err == nil {
		rows = append(rows,
			[2]string{"Host", details.Hostname},
			[2]string{"Platform", fmt.Sprintf("%s %s", details.Platform, details.KernelArch)},
			[2]string{"Kernel", details.KernelVersion},
		)
	}
	fmt.Println(renderStatus(rows, status.Available))
}

func runInstall(ctx context.Context, mgr *manager.Manager, opts manager.Options) {
	path, err := installWithProgress(ctx, opts, mgr.Install)
	if err != nil {
		printError(fmt.Sprintf("Install failed: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Installed scout at %s", path))
}

func runUpdate(ctx context.Context, mgr *manager.Manager, opts manager.Options) {
	path, err := installWithProgress(ctx, opts, mgr.Refresh)
	if err != nil {
		printError(fmt.Sprintf("Update failed: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("scout is up to date at %s", path))
}

func runPurge(mgr *manager.Manager) {
	if err := mgr.Purge(); err != nil {
		printError(fmt.Sprintf("Purge failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Cache purged")
}

func showHelp() {
	fmt.Println(`scoutbin - manages the scout binary lifecycle

Usage: scoutbin [command] [flags]

Commands:
  resolve             Print the path of a usable scout binary (default)
  status              Show the current resolution state and host info
  install             Download and install the best compatible release
  update              Check for and install a newer compatible release
  purge               Remove the cache directory and metadata
  version             Show scoutbin version
  help                Show this help

Flags:
  --version <v>       Pin install to an exact release version
  --force, -f         Bypass the cached binary / up-to-date check
  --debug             Enable debug logging

Environment:
  SCOUT_BINARY_PATH   Use a pre-installed binary (must be valid)
  SCOUT_CACHE_DIR     Override the cache root directory`)
}
