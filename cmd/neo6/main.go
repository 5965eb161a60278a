// Command neo6 runs the transaction proxy: it loads default.toml and
// transactions.yaml, registers the built-in protocol plugins, and serves
// the REST, TCP, MQ and TN3270 Frontend Listeners plus the Admin Control
// Socket until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/neo6systems/neo6/internal/app"
)

const (
	exitOK             = 0
	exitConfigInvalid  = 1
	exitPortBindFailed = 2
	exitPluginLoad     = 3
	exitInternal       = 4
)

type options struct {
	configPath       string
	transactionsPath string
	templatesDir     string
	protocol         string
	port             int
	adminPort        int
	libraryPath      string
	logLevel         string
	redisAddr        string
	mqQueue          string
}

func parseFlags(args []string) options {
	fs := flag.NewFlagSet("neo6", flag.ExitOnError)
	opts := options{}
	fs.StringVar(&opts.configPath, "config", envOr("NEO6_CONFIG", "default.toml"), "path to default.toml")
	fs.StringVar(&opts.transactionsPath, "transactions", "transactions.yaml", "path to the transaction registry document")
	fs.StringVar(&opts.templatesDir, "templates", "", "directory of *.t3270 screen templates")
	fs.StringVar(&opts.protocol, "protocol", "", "restrict to a single protocol (unused when empty: all configured protocols load)")
	fs.IntVar(&opts.port, "port", 0, "REST listener port override")
	fs.IntVar(&opts.adminPort, "admin-port", 0, "admin control socket port override")
	fs.StringVar(&opts.libraryPath, "library-path", envOr("NEO6_LIBRARY_PATH", ""), "directory to scan for .so protocol plugins")
	fs.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", ""), "error|warn|info|debug|trace")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "redis address backing the MQ frontend listener (empty disables MQ)")
	fs.StringVar(&opts.mqQueue, "mq-queue", "", "MQ request queue name")
	_ = fs.Parse(args)
	return opts
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func main() {
	opts := parseFlags(os.Args[1:])
	os.Exit(run(opts))
}

func run(opts options) int {
	if opts.logLevel != "" {
		_ = os.Setenv("LOG_LEVEL", opts.logLevel)
	}

	appOpts := app.Options{
		ConfigPath:       opts.configPath,
		TransactionsPath: opts.transactionsPath,
		TemplatesDir:     opts.templatesDir,
		LibraryPath:      opts.libraryPath,
		Protocol:         opts.protocol,
		Port:             opts.port,
		AdminPort:        opts.adminPort,
		RedisAddr:        opts.redisAddr,
		MQRequestQueue:   opts.mqQueue,
		GracePeriod:      30 * time.Second,
	}

	a, err := app.New(appOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo6: %v\n", err)
		return exitConfigInvalid
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "neo6: %v\n", err)
		return classifyRunError(err)
	}
	return exitOK
}

func classifyRunError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "bind"):
		return exitPortBindFailed
	case strings.Contains(msg, "plugin"):
		return exitPluginLoad
	default:
		return exitInternal
	}
}
