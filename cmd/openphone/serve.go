package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/metrics"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a read-only HTTP proxy in front of the API",
		Long: `Serve GET /v1/<collection> (every page as one JSON array),
GET /v1/<collection>/<id>, /health, /ready and /metrics.
With --redis-url, single-record responses are cached and 429 cooldowns are
shared between proxy instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			logger := a.logger()
			srv := &http.Server{
				Addr:              addr,
				Handler:           newProxy(s.op.Core(), s.redis, logger).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("Starting OpenPhone proxy")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// proxy serves collections and records through one core client.
type proxy struct {
	core   *client.Client
	redis  *redis.Client
	logger zerolog.Logger
}

func newProxy(core *client.Client, redisClient *redis.Client, logger zerolog.Logger) *proxy {
	return &proxy{core: core, redis: redisClient, logger: logger}
}

func (p *proxy) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", p.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /v1/{collection}", p.collectionHandler)
	mux.HandleFunc("GET /v1/{collection}/{id}", p.recordHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (p *proxy) readyHandler(w http.ResponseWriter, r *http.Request) {
	if p.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// collectionHandler streams every record of a collection as one JSON array.
// The first page is fetched before any output so its errors keep their
// status; a failure on a later page truncates the array.
func (p *proxy) collectionHandler(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	if _, ok := listables[collection]; !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	pager := pagination.New(p.core, collection, r.URL.Query())
	first, err := pager.Next(r.Context())
	if err != nil && !errors.Is(err, pagination.Done) {
		p.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if total, ok := pager.TotalItems(); ok {
		w.Header().Set("X-Total-Items", strconv.Itoa(total))
	}
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	_, _ = w.Write([]byte("["))
	count := 0
	for rec := first; rec != nil; {
		if count > 0 {
			_, _ = w.Write([]byte(","))
		}
		if err := enc.Encode(rec); err != nil {
			p.logger.Warn().Err(err).Msg("Client went away")
			return
		}
		count++

		rec, err = pager.Next(r.Context())
		if errors.Is(err, pagination.Done) {
			break
		}
		if err != nil {
			p.logger.Error().
				Err(err).
				Str("endpoint", collection).
				Int("records", count).
				Msg("Collection stream aborted")
			return
		}
	}
	_, _ = w.Write([]byte("]\n"))

	p.logger.Debug().
		Str("endpoint", collection).
		Int("records", count).
		Int("pages", pager.PagesFetched()).
		Msg("Collection streamed")
}

func (p *proxy) recordHandler(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("collection") + "/" + r.PathValue("id")
	body, err := p.core.Get(r.Context(), path, r.URL.Query())
	if err != nil {
		p.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a client error onto the proxy response, keeping the
// upstream status where there is one.
func (p *proxy) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode > 0:
			status = apiErr.StatusCode
		case apiErr.Kind == client.KindRateLimited:
			status = http.StatusTooManyRequests
		case apiErr.Kind == client.KindValidation, apiErr.Kind == client.KindBadRequest:
			status = http.StatusBadRequest
		}
		if apiErr.RetryAfter != nil {
			w.Header().Set("Retry-After", strconv.Itoa(*apiErr.RetryAfter))
		}
	}

	p.logger.Warn().Err(err).Int("status", status).Msg("Proxy request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": err.Error(), "kind": client.KindOf(err)},
	})
}
