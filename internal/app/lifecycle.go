package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ReloadAll rebuilds the transaction registry, protocol loader and tn3270
// template set atomically, implementing both admin.ConfigReloader and
// rest.Reloader so POST /admin/reload and the ReloadConfig admin command
// share one code path. The ReloadProtocols admin command does not go
// through here; it reloads only the protocol loader.
func (a *App) ReloadAll() error {
	if err := a.transactions.Reload(a.opts.TransactionsPath); err != nil {
		return fmt.Errorf("app: reload transactions: %w", err)
	}
	if a.opts.TemplatesDir != "" {
		if err := a.templates.Reload(); err != nil {
			return fmt.Errorf("app: reload tn3270 templates: %w", err)
		}
	}
	if a.cfg.Protocols.AutoLoad && a.cfg.Protocols.LibraryPath != "" {
		if err := a.loader.Reload(a.cfg.Protocols.LibraryPath, nil); err != nil {
			return fmt.Errorf("app: reload protocols: %w", err)
		}
	}
	log.Info().Msg("app: reload complete")
	return nil
}

// Run starts every configured listener and blocks until ctx is cancelled,
// then drains in-flight work up to the configured grace period before
// returning, mirroring edgectl Service.serve's per-component error-channel
// select loop.
func (a *App) Run(ctx context.Context) error {
	grace := a.opts.GracePeriod
	if grace <= 0 {
		grace = 30 * time.Second
	}

	errs := make(chan error, 8)

	restAddr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	a.httpServer = &http.Server{Addr: restAddr, Handler: a.restServer.Handler()}
	go func() {
		log.Info().Str("addr", restAddr).Msg("app: rest listener starting")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("rest listener: %w", err)
		}
	}()

	tcpAddr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port+1))
	tcpListener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("app: bind tcp listener %s: %w", tcpAddr, err)
	}
	go func() {
		log.Info().Str("addr", tcpAddr).Msg("app: tcp listener starting")
		if err := a.tcpListener.Serve(ctx, tcpListener); err != nil {
			errs <- fmt.Errorf("tcp listener: %w", err)
		}
	}()

	tn3270Addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port+2))
	tn3270Ln, err := net.Listen("tcp", tn3270Addr)
	if err != nil {
		return fmt.Errorf("app: bind tn3270 listener %s: %w", tn3270Addr, err)
	}
	go func() {
		log.Info().Str("addr", tn3270Addr).Msg("app: tn3270 listener starting")
		if err := a.tn3270Listener.Serve(ctx, tn3270Ln); err != nil {
			errs <- fmt.Errorf("tn3270 listener: %w", err)
		}
	}()

	if a.mqListener != nil {
		go func() {
			log.Info().Msg("app: mq listener starting")
			if err := a.mqListener.Serve(ctx); err != nil {
				errs <- fmt.Errorf("mq listener: %w", err)
			}
		}()
	}

	adminAddr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.AdminPort))
	adminLn, err := net.Listen("tcp", adminAddr)
	if err != nil {
		return fmt.Errorf("app: bind admin listener %s: %w", adminAddr, err)
	}
	go func() {
		log.Info().Str("addr", adminAddr).Msg("app: admin control socket starting")
		if err := a.adminServer.Serve(ctx, adminLn); err != nil {
			errs <- fmt.Errorf("admin socket: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("app: shutdown signal received")
	case err := <-errs:
		log.Error().Err(err).Msg("app: component failed, shutting down")
		a.shutdown(grace)
		return err
	}

	a.shutdown(grace)
	return nil
}

func (a *App) shutdown(grace time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("app: rest listener shutdown incomplete")
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}

// shutdownFromAdmin backs the admin socket's Shutdown command.
func (a *App) shutdownFromAdmin(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	grace := a.opts.GracePeriod
	if ok {
		grace = time.Until(deadline)
	}
	a.shutdown(grace)
	return nil
}
