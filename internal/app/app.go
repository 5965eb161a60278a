// Package app wires config, logging, registries, the router, the Frontend
// Listeners and the Admin Control Socket into one runnable process,
// grounded on edgectl's internal/ghost Service bootstrap/serve lifecycle
// (signal-driven shutdown, a heartbeat loop, one error channel per
// long-running component) minus the Mirage clustering/reconnect machinery,
// which is out of scope for a transaction proxy.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/admin"
	"github.com/neo6systems/neo6/internal/auth"
	"github.com/neo6systems/neo6/internal/config"
	"github.com/neo6systems/neo6/internal/connreg"
	"github.com/neo6systems/neo6/internal/frontend/mq"
	"github.com/neo6systems/neo6/internal/frontend/rest"
	"github.com/neo6systems/neo6/internal/frontend/tcp"
	"github.com/neo6systems/neo6/internal/frontend/tn3270"
	"github.com/neo6systems/neo6/internal/loader"
	"github.com/neo6systems/neo6/internal/logging"
	"github.com/neo6systems/neo6/internal/observability"
	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/protoplugins"
	"github.com/neo6systems/neo6/internal/router"
	"github.com/neo6systems/neo6/internal/txregistry"
)

// Options configures one App instance, populated from CLI flags and
// environment overrides by cmd/neo6/main.go.
type Options struct {
	ConfigPath       string
	TransactionsPath string
	TemplatesDir     string
	LibraryPath      string
	Protocol         string
	Port             int
	AdminPort        int
	RedisAddr        string
	MQRequestQueue   string
	GracePeriod      time.Duration
}

// App owns every long-running component of one proxy instance.
type App struct {
	opts         Options
	cfg          config.Config
	transactions *txregistry.Registry
	loader       *loader.Loader
	router       *router.Router
	templates    *tn3270.TemplateStore
	redisClient  *redis.Client

	restServer     *rest.Server
	httpServer     *http.Server
	tcpListener    *tcp.Listener
	tn3270Listener *tn3270.Listener
	mqListener     *mq.Listener
	adminServer    *admin.Server
	ringLog        *admin.RingLog
	conns          *connreg.Tracker

	startedAt time.Time
}

// New assembles an App from opts without starting any network listener.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.AdminPort != 0 {
		cfg.Server.AdminPort = opts.AdminPort
	}
	if opts.LibraryPath != "" {
		cfg.Protocols.LibraryPath = opts.LibraryPath
	}
	if opts.Protocol != "" {
		cfg.Protocols.Enabled = []string{opts.Protocol}
	}

	ringLog := admin.NewRingLog(2000)
	logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.Format(cfg.Logging.Format),
		Output: cfg.Logging.Output,
	})
	log.Logger = log.Logger.Output(zerolog.MultiLevelWriter(log.Logger, ringLog))

	transactions := txregistry.New()
	if err := transactions.Load(opts.TransactionsPath); err != nil {
		return nil, fmt.Errorf("app: load transactions: %w", err)
	}

	pluginLoader := loader.New()
	if err := registerBuiltinPlugins(pluginLoader, cfg); err != nil {
		return nil, fmt.Errorf("app: register plugins: %w", err)
	}
	if cfg.Protocols.AutoLoad && cfg.Protocols.LibraryPath != "" {
		if err := pluginLoader.LoadAll(cfg.Protocols.LibraryPath, nil); err != nil {
			log.Warn().Err(err).Msg("app: optional .so plugin discovery failed")
		}
	}

	rt := router.New(transactions, pluginLoader, cfg.CircuitBreaker)
	observability.RegisterMetrics()

	templates := tn3270.NewTemplateStore(opts.TemplatesDir)
	if opts.TemplatesDir != "" {
		if err := templates.Load(); err != nil {
			log.Warn().Err(err).Msg("app: tn3270 template load failed")
		}
	}

	conns := connreg.New()
	a := &App{
		opts:           opts,
		cfg:            cfg,
		transactions:   transactions,
		loader:         pluginLoader,
		router:         rt,
		templates:      templates,
		ringLog:        ringLog,
		conns:          conns,
		tn3270Listener: tn3270.New(rt, templates).WithConnTracker(conns),
		tcpListener:    tcp.New(rt).WithConnTracker(conns),
		startedAt:      time.Now(),
	}
	var validator auth.Validator
	if cfg.Security.JWTSecret != "" {
		validator = auth.JWTValidator{Secret: cfg.Security.JWTSecret}
	}
	a.restServer = rest.New(rt, a, validator)

	if opts.RedisAddr != "" {
		a.redisClient = redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		queue := opts.MQRequestQueue
		if queue == "" {
			queue = "neo6:mq:requests"
		}
		a.mqListener = mq.New(a.redisClient, rt, queue)
	}

	a.adminServer = &admin.Server{
		Loader:       pluginLoader,
		Transactions: transactions,
		Router:       rt,
		Reloader:     a,
		Conns:        conns,
		Logs:         ringLog,
		StartedAt:    a.startedAt,
		SetLogLevel:  logging.SetLevel,
		Shutdown:     a.shutdownFromAdmin,
	}

	return a, nil
}

type builtinFactory struct {
	build      func() *pluginabi.VTable
	configJSON []byte
}

// registerBuiltinPlugins installs the reference rest/tcp/mq/tn3270/lu62/jca
// plugins directly into the Loader's registry so the proxy is fully
// functional with zero .so files present (§4.1).
func registerBuiltinPlugins(l *loader.Loader, cfg config.Config) error {
	builtins := map[string]builtinFactory{
		"rest":   {protoplugins.RestVTable, []byte(`{"timeout_ms":30000}`)},
		"tcp":    {protoplugins.TCPVTable, []byte(`{"dial_timeout_ms":10000}`)},
		"mq":     {protoplugins.MQVTable, []byte(`{}`)},
		"tn3270": {protoplugins.TN3270VTable, []byte(`{}`)},
		"lu62":   {protoplugins.LU62VTable, []byte(`{}`)},
		"jca":    {protoplugins.JCAVTable, []byte(`{}`)},
	}

	enabled := cfg.Protocols.Enabled
	if len(enabled) == 0 {
		for name := range builtins {
			enabled = append(enabled, name)
		}
	}
	for _, name := range enabled {
		factory, ok := builtins[name]
		if !ok {
			continue
		}
		if err := l.RegisterBuiltin(factory.build(), factory.configJSON); err != nil {
			return fmt.Errorf("register builtin %q: %w", name, err)
		}
	}
	return nil
}
