// Command sqlcored runs a demo origin of the database core: a handful of
// Node contexts sharing one Origin, contending for leadership, and serving
// Query Router traffic until terminated.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	mbp "go.sqlitecoord.dev/core/mainboilerplate"
	"go.sqlitecoord.dev/core/metrics"
	"go.sqlitecoord.dev/core/node"
	"go.sqlitecoord.dev/core/storage"
)

// Config is the top-level configuration tree: one struct-per-concern,
// each wired under its own named flag group.
type Config struct {
	Origin struct {
		Dir          string `long:"dir" env:"DIR" required:"true" description:"Origin directory holding the database file and its lock"`
		DatabaseName string `long:"database-name" env:"DATABASE_NAME" default:"worker.db" description:"Database file name within the origin directory"`
		Nodes        int    `long:"nodes" env:"NODES" default:"1" description:"Number of node contexts to run in this process, contending for the same origin"`
	} `group:"Origin" namespace:"origin" env-namespace:"ORIGIN"`

	Router struct {
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"5s" description:"Follower wait deadline for a leader's query response"`
	} `group:"Router" namespace:"router" env-namespace:"ROUTER"`

	Metrics struct {
		Addr string `long:"addr" env:"ADDR" default:":8081" description:"Address to serve /metrics on; empty disables the listener"`
	} `group:"Metrics" namespace:"metrics" env-namespace:"METRICS"`

	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

type serveCmd struct {
	Config
}

// wipeCmd is an offline administrative command: it opens the origin's
// Storage Adapter directly (no node, no election, no bus) and wipes it.
// Registered via mainboilerplate's CommandRegistry rather than a direct
// parser.AddCommand, so additional administrative commands can be grown
// under the same tree without touching main's wiring.
type wipeCmd struct {
	Dir          string `long:"dir" env:"DIR" required:"true" description:"Origin directory holding the database file and its lock"`
	DatabaseName string `long:"database-name" env:"DATABASE_NAME" default:"worker.db" description:"Database file name within the origin directory"`
}

func (cmd *wipeCmd) Execute([]string) error {
	var adapter = storage.New(storage.Config{Dir: cmd.Dir, DatabaseName: cmd.DatabaseName})
	if err := adapter.Open(context.Background()); err != nil {
		return errors.Wrap(err, "opening storage adapter")
	}
	defer adapter.Close()

	if err := adapter.Wipe(context.Background()); err != nil {
		return errors.Wrap(err, "wiping database")
	}
	log.WithField("dir", cmd.Dir).Info("wiped database")
	return nil
}

func (cmd *serveCmd) Execute([]string) error {
	mbp.InitLog(cmd.Log)
	metrics.MustRegister()

	if cmd.Origin.Nodes < 1 {
		return errors.New("origin.nodes must be at least 1")
	}
	if err := os.MkdirAll(cmd.Origin.Dir, 0o755); err != nil {
		return errors.Wrap(err, "creating origin directory")
	}

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var sig = make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		var s = <-sig
		log.WithField("signal", s).Info("received signal; shutting down")
		cancel()
	}()

	var group, groupCtx = errgroup.WithContext(ctx)

	if cmd.Metrics.Addr != "" {
		var mux = http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		var srv = &http.Server{Addr: cmd.Metrics.Addr, Handler: mux}

		group.Go(func() error {
			log.WithField("addr", cmd.Metrics.Addr).Info("serving metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			var shutdownCtx, shutdownCancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var origin = node.NewOrigin(cmd.Origin.Dir, cmd.Origin.DatabaseName)

	for i := 0; i < cmd.Origin.Nodes; i++ {
		var n = node.New(origin, cmd.Router.Timeout)
		group.Go(func() error {
			log.WithField("node", n.ID).Info("starting node")
			if err := n.Run(groupCtx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	return group.Wait()
}

func main() {
	var cmd serveCmd
	var parser = flags.NewParser(&cmd, flags.Default)
	parser.SubcommandsOptional = true
	parser.LongDescription = "sqlcored runs a shared-origin SQLite database core, coordinating leadership and query routing across multiple node contexts."

	var registry = mbp.NewCommandRegistry()
	registry.AddCommand("", "wipe", "Wipe and recreate a database outside of a running daemon",
		"wipe opens the origin's database directly and resets it to empty, without starting a node or joining leadership contention.",
		&wipeCmd{})
	if err := registry.AddCommands("", parser.Command, false); err != nil {
		panic(err)
	}

	mbp.AddPrintConfigCmd(parser, "sqlcored.ini")
	mbp.MustParseConfig(parser, "sqlcored.ini")
}
