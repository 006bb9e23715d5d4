package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"barprovider/internal/aggregate"
	"barprovider/internal/config"
	"barprovider/internal/credentials"
	"barprovider/internal/fetcher"
	"barprovider/internal/httpx"
	"barprovider/internal/interval"
	"barprovider/internal/provider/cache"
	"barprovider/internal/provider/polygon"
	"barprovider/internal/provider/ratelimit"
	"barprovider/internal/saver"
	"barprovider/internal/schema"
	"barprovider/internal/slogx"
	"barprovider/internal/store"
)

var (
	configPath string

	fetchVendor   string
	fetchSymbols  string
	fetchInterval string
	fetchStart    string
	fetchEnd      string
	fetchSort     string
	fetchLimit    int
	fetchFormat   string
	fetchOut      string
	fetchDB       string
	fetchResample string
)

var rootCMD = &cobra.Command{
	Use:   "barfetch",
	Short: "Fetch historical OHLCV bars from market data vendors",
	Long: `barfetch pulls historical OHLCV bars through the vendor fetch
pipeline (normalize, extract with pagination, transform to the
canonical schema) and writes them to csv, json or parquet files, or
into a local SQLite database.`,
}

var fetchCMD = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch bars for one or more symbols and save them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		slog.SetDefault(slogx.NewDefault(cfg.LogLevel))
		registerAdapters(cfg)

		a, ok := fetcher.Lookup(fetchVendor)
		if !ok {
			return fmt.Errorf("unknown vendor %q (have: %s)", fetchVendor, strings.Join(fetcher.Names(), ", "))
		}

		p := schema.Params{
			Symbol:   fetchSymbols,
			Interval: fetchInterval,
			Sort:     schema.SortOrder(fetchSort),
			Limit:    fetchLimit,
		}
		if fetchStart != "" {
			if p.StartDate, err = time.Parse("2006-01-02", fetchStart); err != nil {
				return fmt.Errorf("bad --start: %w", err)
			}
		}
		if fetchEnd != "" {
			if p.EndDate, err = time.Parse("2006-01-02", fetchEnd); err != nil {
				return fmt.Errorf("bad --end: %w", err)
			}
		}

		creds := credentials.FromEnv("polygon_api_key")
		if cfg.Polygon.APIKey != "" {
			creds["polygon_api_key"] = cfg.Polygon.APIKey
		}

		runner := &cache.Runner{TTL: cfg.Cache.TTL, MaxItems: cfg.Cache.MaxItems}
		bars, err := runner.Fetch(cmd.Context(), a, p, creds)
		if err != nil {
			return err
		}
		slog.Info("fetched", "vendor", fetchVendor, "bars", len(bars))

		if fetchResample != "" {
			spec, err := interval.Parse(fetchResample)
			if err != nil {
				return fmt.Errorf("bad --resample: %w", err)
			}
			bars = aggregate.Resample(bars, spec)
			slog.Info("resampled", "interval", fetchResample, "bars", len(bars))
		}
		// Concurrent multi-symbol extraction yields task-completion order;
		// files get a deterministic per-symbol layout.
		order := schema.SortOrder(fetchSort)
		if order != schema.SortAsc && order != schema.SortDesc {
			order = schema.SortDesc
		}
		aggregate.SortBars(bars, order)

		if dbPath := firstNonEmpty(fetchDB, cfg.Store.Path); dbPath != "" {
			s, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fallback := strings.ToUpper(strings.TrimSpace(strings.Split(fetchSymbols, ",")[0]))
			token := firstNonEmpty(fetchResample, fetchInterval, "1d")
			if err := s.SaveBars(cmd.Context(), fetchVendor, fallback, token, bars); err != nil {
				return err
			}
			slog.Info("stored", "db", dbPath, "bars", len(bars))
		}

		format := firstNonEmpty(fetchFormat, cfg.Output.Format)
		sv := saver.New(format)
		if sv == nil {
			return fmt.Errorf("unsupported output format %q", format)
		}
		out := fetchOut
		if out == "" {
			name := fmt.Sprintf("%s_%s.%s", fetchVendor, sanitize(fetchSymbols), sv.Extension())
			out = filepath.Join(cfg.Output.Dir, name)
		}
		if err := sv.Save(bars, out); err != nil {
			return err
		}
		slog.Info("saved", "path", out, "format", format)
		return nil
	},
}

var vendorsCMD = &cobra.Command{
	Use:   "vendors",
	Short: "List the registered vendor adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		registerAdapters(cfg)
		for _, name := range fetcher.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

// registerAdapters wires the configured transport stack (retrying HTTP
// client, optional token bucket) into one adapter per asset class.
func registerAdapters(cfg *config.Config) {
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
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func sanitize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "_")
	return strings.ReplaceAll(s, ":", "")
}

func init() {
	rootCMD.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")

	fetchCMD.Flags().StringVar(&fetchVendor, "vendor", "polygon_crypto", "vendor adapter id")
	fetchCMD.Flags().StringVar(&fetchSymbols, "symbols", "BTC-USD", "comma-separated symbols")
	fetchCMD.Flags().StringVar(&fetchInterval, "interval", "", "interval token, e.g. 1d, 15m, 1W")
	fetchCMD.Flags().StringVar(&fetchStart, "start", "", "start date (YYYY-MM-DD)")
	fetchCMD.Flags().StringVar(&fetchEnd, "end", "", "end date (YYYY-MM-DD)")
	fetchCMD.Flags().StringVar(&fetchSort, "sort", "", "sort order: asc or desc")
	fetchCMD.Flags().IntVar(&fetchLimit, "limit", 0, "page size cap (0 = vendor default)")
	fetchCMD.Flags().StringVar(&fetchFormat, "format", "", "output format: csv, json or parquet")
	fetchCMD.Flags().StringVar(&fetchOut, "out", "", "output file path (default derived from vendor+symbols)")
	fetchCMD.Flags().StringVar(&fetchDB, "db", "", "SQLite path; when set, bars are also upserted there")
	fetchCMD.Flags().StringVar(&fetchResample, "resample", "", "combine fetched bars into a coarser interval, e.g. 1W")

	rootCMD.AddCommand(fetchCMD)
	rootCMD.AddCommand(vendorsCMD)
}

func main() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}
