package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/drake/ferry/config"
	"github.com/drake/ferry/debug"
	"github.com/drake/ferry/internal/logging"
	"github.com/drake/ferry/lua"
	"github.com/drake/ferry/remote"
	"github.com/drake/ferry/session"
	"github.com/drake/ferry/transfer"
	"github.com/drake/ferry/ui"
)

// chunks collects repeated -e flags.
type chunks []string

func (c *chunks) String() string     { return strings.Join(*c, "; ") }
func (c *chunks) Set(v string) error { *c = append(*c, v); return nil }

// profileOverride makes -profile the target of a bare ftp.connect().
type profileOverride struct {
	cfg  *config.Config
	name string
}

func (p profileOverride) Profile(name string) (remote.Credentials, bool) {
	if name == lua.DefaultProfile && p.name != "" {
		name = p.name
	}
	return p.cfg.Profile(name)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ferry:", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags
	configPath := flag.String("config", "", "Path to ferry.yaml (default: "+config.File()+")")
	profile := flag.String("profile", "", "Profile used by ftp.connect() without arguments")
	quiet := flag.Bool("q", false, "Do not print connection status lines")
	var inline chunks
	flag.Var(&inline, "e", "Lua chunk to run after the scripts (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ferry [flags] [script.lua ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 && len(inline) == 0 {
		flag.Usage()
		return errors.New("nothing to run")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *profile != "" {
		if _, ok := cfg.Profile(*profile); !ok {
			return fmt.Errorf("unknown profile %q", *profile)
		}
	}

	logger := logging.New(os.Stderr, cfg.Log)

	layout := remote.Layout{LocalDir: expandHome(cfg.LocalDir)}
	dialer := remote.Router{
		FTP: &remote.FTPDialer{
			Layout:  layout,
			Timeout: cfg.Timeout,
			Logger:  logging.Component(logger, "ftp"),
		},
		SFTP: &remote.SFTPDialer{
			Layout:     layout,
			Timeout:    cfg.Timeout,
			KnownHosts: expandHome(cfg.KnownHosts),
			Logger:     logging.Component(logger, "sftp"),
		},
	}

	managerOpts := []transfer.Option{transfer.WithLogger(logging.Component(logger, "manager"))}
	if cfg.ReplaceOnConnect {
		managerOpts = append(managerOpts, transfer.WithReplace())
	}
	manager := transfer.NewManager(dialer, managerOpts...)

	s := session.New(manager, ui.NewConsole(os.Stdout), session.Config{
		InitFile:        config.InitFile(),
		UserScripts:     flag.Args(),
		Chunks:          inline,
		Profiles:        profileOverride{cfg: cfg, name: *profile},
		ListingCache:    cfg.ListingCache,
		ShutdownTimeout: cfg.Timeout,
		Quiet:           *quiet,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug.NewMonitor(s, logger).Start(ctx)

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	return config.Load(path)
}

// expandHome expands a leading ~ to the home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
