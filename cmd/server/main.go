package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"barprovider/internal/config"
	"barprovider/internal/credentials"
	"barprovider/internal/fetcher"
	"barprovider/internal/httpx"
	"barprovider/internal/provider/cache"
	"barprovider/internal/provider/polygon"
	"barprovider/internal/provider/ratelimit"
	"barprovider/internal/schema"
	"barprovider/internal/slogx"
)

type barsResponse struct {
	Vendor string       `json:"vendor"`
	Bars   []schema.Bar `json:"bars"`
}

// app bundles the pieces a request handler needs.
type app struct {
	runner *cache.Runner
	creds  credentials.Store
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slogx.NewDefault(cfg.LogLevel))

	client := httpx.New(cfg.Polygon.Timeout)
	client.MaxRetries = cfg.Polygon.MaxRetries
	var t polygon.Transport = client
	if cfg.Polygon.RequestsPerMin > 0 {
		rate := float64(cfg.Polygon.RequestsPerMin) / 60.0
		t = &ratelimit.TokenBucketTransport{T: t, TB: ratelimit.NewTokenBucket(rate, cfg.Polygon.Burst)}
	}

	shared := polygon.Config{
		BaseURL:        cfg.Polygon.BaseURL,
		MaxConcurrency: cfg.Polygon.MaxConcurrency,
		MaxPages:       cfg.Polygon.MaxPages,
	}
	crypto := shared
	crypto.Name = "PolygonCrypto"
	crypto.AssetClass = polygon.AssetCrypto
	fetcher.Register("polygon_crypto", polygon.New(crypto, t))
	equity := shared
	equity.Name = "PolygonEquity"
	equity.AssetClass = polygon.AssetEquity
	fetcher.Register("polygon_equity", polygon.New(equity, t))

	creds := credentials.FromEnv("polygon_api_key")
	if cfg.Polygon.APIKey != "" {
		creds["polygon_api_key"] = cfg.Polygon.APIKey
	}
	if _, err := creds.Get("polygon_api_key"); err != nil {
		slog.Warn("POLYGON_API_KEY not set; vendor requests will fail")
	}

	a := &app{
		runner: &cache.Runner{TTL: cfg.Cache.TTL, MaxItems: cfg.Cache.MaxItems},
		creds:  creds,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/bars", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		a.handleGetBars(w, r)
	})
	mux.HandleFunc("/v1/vendors", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{"vendors": fetcher.Names()})
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func (a *app) handleGetBars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vendor := q.Get("vendor")
	if vendor == "" {
		vendor = "polygon_crypto"
	}
	adapter, ok := fetcher.Lookup(vendor)
	if !ok {
		http.Error(w, "unknown vendor "+strconv.Quote(vendor), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(q.Get("symbols")) == "" {
		http.Error(w, "missing symbols query param", http.StatusBadRequest)
		return
	}

	p := schema.Params{
		Symbol:   q.Get("symbols"),
		Interval: q.Get("interval"),
		Sort:     schema.SortOrder(q.Get("sort")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		p.Limit = n
	}
	for param, dst := range map[string]*time.Time{"start": &p.StartDate, "end": &p.EndDate} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "bad "+param+" date (want YYYY-MM-DD)", http.StatusBadRequest)
				return
			}
			*dst = t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 55*time.Second)
	defer cancel()
	writeBars(ctx, w, a.runner, adapter, vendor, p, a.creds)
}

// writeBars runs the pipeline and maps the error taxonomy onto HTTP
// statuses. Split out from the route handler so tests can drive it with
// a recorder.
func writeBars(ctx context.Context, w http.ResponseWriter, runner *cache.Runner, adapter fetcher.Adapter, vendor string, p schema.Params, creds credentials.Store) {
	bars, err := runner.Fetch(ctx, adapter, p, creds)
	if err != nil {
		var verr *fetcher.ValidationError
		var merr *credentials.MissingError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		case errors.As(err, &merr):
			http.Error(w, merr.Error(), http.StatusUnauthorized)
		case errors.Is(err, fetcher.ErrEmptyData):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(barsResponse{Vendor: vendor, Bars: bars})
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
