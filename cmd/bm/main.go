package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/config"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/library"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/storage"
)

var version = "dev"

// command runs one subcommand against an open environment.
type command func(env *env, args *args) error

var commands = map[string]command{
	"add":         runAdd,
	"rm":          runRemove,
	"archive":     runArchive,
	"unarchive":   runUnarchive,
	"fav":         runFavorite,
	"group":       runGroup,
	"tags":        runTags,
	"merge-tag":   runMergeTag,
	"search":      runSearch,
	"stats":       runStats,
	"dormant":     runDormant,
	"dupes":       runDupes,
	"check":       runCheck,
	"export":      runExport,
	"import":      runImport,
	"export-html": runExportHTML,
	"import-html": runImportHTML,
	"serve":       runServe,
	"sweep":       runSweep,
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	name := os.Args[1]
	switch name {
	case "help", "--help", "-h":
		printHelp()
		return
	case "version", "--version":
		fmt.Println(version)
		return
	}

	cmd, ok := commands[name]
	rest := os.Args[2:]
	if !ok {
		// Treat as search query (join all remaining args)
		cmd, rest = runQuickSearch, os.Args[1:]
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		fail("Error loading bookmarks", err)
	}
	runErr := cmd(e, parseArgs(rest))
	if err := e.close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving bookmarks: %v\n", err)
	}
	if runErr != nil {
		fail("Error", runErr)
	}
}

func printHelp() {
	help := `bm - bookmark manager

Usage:
  bm <query>                       Quick search, select, open
  bm add <url> [title]             Add a bookmark (--group, --tags, --desc)
  bm rm <url>                      Delete a bookmark
  bm archive <url>                 Move a bookmark to the archive
  bm unarchive <url>               Restore from the archive (--groups)
  bm fav <url>                     Toggle favorite
  bm group list                    List groups
  bm group create <name>           Create a group (--parent, --icon, --color)
  bm group rm <name>               Delete a group (--promote keeps sub-groups)
  bm group rename <old> <new>      Rename a group
  bm group add <name> <url>        Add a bookmark to a group
  bm group remove <name> <url>     Remove a bookmark from a group
  bm group parent <name> [parent]  Nest under parent, or promote to top-level
  bm tags                          List tags by use
  bm merge-tag <from> <to>         Rename a tag on every bookmark
  bm search <query>                Print matching bookmarks
  bm stats                         Usage summary
  bm dormant [days]                Bookmarks not opened recently
  bm dupes                         Report duplicate bookmarks
  bm check                         Check links (--archive archives dead ones)
  bm export [path]                 Export JSON backup (--analytics, --sections)
  bm import <file>                 Import JSON backup (--replace --yes, --sections)
  bm export-html [path]            Export bookmarks to Netscape HTML
  bm import-html <file>            Import bookmarks from Netscape HTML
  bm serve                         Run the HTTP API
  bm sweep                         Purge expired archive entries
  bm help                          Show this help

Configuration:
  ~/.config/bm/config.yaml (or $BM_CONFIG, .toml also accepted)

Data Storage:
  ~/.config/bm/bookmarks.json, bookmarks.db or redis
`
	fmt.Print(help)
}

// env bundles what every subcommand needs.
type env struct {
	cfg *config.Config
	log logger.Logger
	lib *library.Library
}

func openEnv(ctx context.Context) (*env, error) {
	path := os.Getenv("BM_CONFIG")
	if path == "" {
		var err error
		if path, err = config.DefaultFilePath(); err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	provider, err := storage.Open(ctx, cfg.StorageOptions(log))
	if err != nil {
		return nil, err
	}
	lib, err := library.Open(ctx, provider, library.WithLogger(log))
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, lib: lib}, nil
}

func (e *env) close(ctx context.Context) error {
	err := e.lib.Close(ctx)
	_ = e.log.Sync()
	return err
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// args splits a subcommand's arguments into positionals and --flags.
// Flags take a value unless they are listed in boolFlags.
type args struct {
	pos   []string
	flags map[string]string
}

var boolFlags = map[string]bool{
	"replace":   true,
	"yes":       true,
	"promote":   true,
	"groups":    true,
	"archive":   true,
	"analytics": true,
}

func parseArgs(raw []string) *args {
	a := &args{flags: map[string]string{}}
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if !strings.HasPrefix(arg, "--") || arg == "--" {
			a.pos = append(a.pos, arg)
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if k, v, ok := strings.Cut(name, "="); ok {
			a.flags[k] = v
			continue
		}
		if boolFlags[name] || i+1 >= len(raw) {
			a.flags[name] = "true"
			continue
		}
		a.flags[name] = raw[i+1]
		i++
	}
	return a
}

func (a *args) arg(i int) string {
	if i < len(a.pos) {
		return a.pos[i]
	}
	return ""
}

func (a *args) flag(name string) string { return a.flags[name] }

func (a *args) bool(name string) bool { return a.flags[name] == "true" }

// need returns an error unless at least n positionals were given.
func (a *args) need(n int, usage string) error {
	if len(a.pos) < n {
		return fmt.Errorf("usage: bm %s", usage)
	}
	return nil
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
