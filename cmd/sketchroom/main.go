package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	intrnl "sketchroom/internal"
	"sketchroom/internal/app"
)

const DefaultServerURL = "ws://localhost:8080/ws"

func main() {
	usage := fmt.Sprintf(
		`SketchRoom collaborative whiteboard.

The default server url is %s (override with SKETCHROOM_SERVER).

Usage:
    sketchroom serve
        [--config=<path>]
        [--addr=<addr>]
        [--audit-db=<path>]
        [--announce]
        [--verbose=<level>]
    sketchroom join
        [--server=<url>]
        [--name=<name>]
        [<room>]
    sketchroom discover
        [--timeout=<timeout>]
    sketchroom -h | --help
    sketchroom --version

Options:
    -h --help                Show this screen.
    --version                Show version.
    --config=<path>          YAML config file. Defaults to ./sketchroom.yaml if present.
    --addr=<addr>            Listen address, e.g. :8080
    --audit-db=<path>        SQLite file for the admin audit journal, or "auto".
    --announce               Advertise the server on the LAN over mDNS.
    --verbose=<level>        glog verbosity.
    --server=<url>           Server websocket url.
    --name=<name>            Display name. Defaults to $SKETCHROOM_USER or $USER.
    --timeout=<timeout>      How long to browse, with time units: ms, s, m [default: 3s]`,
		DefaultServerURL,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], intrnl.Version)
	if err != nil {
		panic(err)
	}

	// glog registers on the standard flag set; nothing else is parsed there
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if serve_, _ := opts.Bool("serve"); serve_ {
		err = serve(opts)
	} else if join_, _ := opts.Bool("join"); join_ {
		err = join(opts)
	} else if discover_, _ := opts.Bool("discover"); discover_ {
		err = discover(opts)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "sketchroom: %v\n", err)
		os.Exit(1)
	}
}

func serve(opts docopt.Opts) error {
	_ = flag.Set("logtostderr", "true")
	if level := optString(opts, "--verbose"); level != "" {
		if err := flag.Set("v", level); err != nil {
			return fmt.Errorf("--verbose: %w", err)
		}
	}

	cfg, err := app.LoadServerConfig(optString(opts, "--config"))
	if err != nil {
		return err
	}
	if addr := optString(opts, "--addr"); addr != "" {
		cfg.Addr = addr
	}
	if auditDB := optString(opts, "--audit-db"); auditDB != "" {
		cfg.AuditDB = auditDB
		if auditDB == "auto" {
			cfg.AuditDB = app.DefaultAuditDBPath()
		}
	}
	if announce, _ := opts.Bool("--announce"); announce {
		cfg.Announce = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		return err
	}
	glog.Infof("[app] sketchroom %s listening on %s (ws path %s)", intrnl.Version, handle.Addr(), cfg.Path)
	if cfg.AuditDB != "" {
		glog.Infof("[app] admin audit journal at %s", cfg.AuditDB)
	}
	return handle.Wait()
}

func join(opts docopt.Opts) error {
	cfg := app.ClientConfig{
		ServerURL: optString(opts, "--server"),
		Name:      optString(opts, "--name"),
		RoomID:    optString(opts, "<room>"),
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = envOrDefault("SKETCHROOM_SERVER", DefaultServerURL)
	}
	return app.RunClient(cfg)
}

func discover(opts docopt.Opts) error {
	timeout, err := time.ParseDuration(optString(opts, "--timeout"))
	if err != nil {
		return fmt.Errorf("--timeout: %w", err)
	}
	peers, err := app.Discover(timeout)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Println("No boards found on the local network.")
		return nil
	}
	for _, peer := range peers {
		fmt.Printf("%s\t%s\n", peer.Name, peer.URL)
		fmt.Printf("\tsketchroom join --server %s\n", peer.URL)
	}
	return nil
}

// optString reads an optional docopt value; absent options come back empty.
func optString(opts docopt.Opts, key string) string {
	value, _ := opts[key].(string)
	return value
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
