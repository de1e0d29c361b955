package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/catalog"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/metrics"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/ratelimit"
	"github.com/carscout/carscout/internal/scraper"
)

// The CLI prints a JSON array of listings on stdout, or {"error": ...} when
// the run cannot even start. Empty inventory is a valid outcome and exits 0;
// only setup failures exit non-zero.
func main() {
	var (
		rawQuery  = flag.String("query", "", "natural-language vehicle search (required)")
		retailers = flag.String("retailers", "carmax,autotrader,kbb,truecar", "comma-separated retailers to search")
		max       = flag.Int("max", 10, "maximum listings per retailer")
		catPath   = flag.String("catalog", "", "path to a discovered filter catalog JSON")
		headless  = flag.Bool("headless", true, "run the browser headless")
		proxy     = flag.String("proxy", "", "proxy server for the browser")
		parseOnly = flag.Bool("parse-only", false, "print the parsed query and exit")
		discover  = flag.Bool("discover", false, "crawl retailer filter pages and print a catalog JSON")
		verbose   = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if *rawQuery == "" && flag.NArg() > 0 {
		*rawQuery = strings.Join(flag.Args(), " ")
	}
	if *rawQuery == "" && !*discover {
		fail("query is required")
	}

	cat := catalog.Default()
	if *catPath != "" {
		loaded, err := catalog.Load(*catPath)
		if err != nil {
			fail(fmt.Sprintf("failed to load catalog: %v", err))
		}
		cat = loaded
	}

	q := query.NewNormalizer(cat).Normalize(*rawQuery)

	if *parseOnly {
		emit(query.ParsedQuery{Query: *rawQuery, Structured: *q})
		return
	}

	adapters, err := resolveAdapters(*retailers)
	if err != nil && !*discover {
		fail(err.Error())
	}

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless
	browserOpts.ProxyServer = *proxy

	b, err := browser.New(browserOpts)
	if err != nil {
		fail(fmt.Sprintf("failed to initialize browser: %v", err))
	}
	defer b.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *discover {
		discovered, err := catalog.NewDiscoverer(b).Discover(ctx)
		if err != nil {
			fail(fmt.Sprintf("catalog discovery failed: %v", err))
		}
		emit(discovered)
		return
	}

	o := scraper.NewOrchestrator(b,
		ratelimit.NewRegistry(2*time.Second, 5*time.Second),
		metrics.New(), scraper.DefaultOptions())
	o.RegisterFast(listing.RetailerTrueCar, scraper.NewTrueCarAPI())

	results := o.AcquireAll(ctx, adapters, q, *max)

	listings := []listing.Listing{}
	for _, result := range results {
		if result.Err != nil {
			logger.Warn("retailer failed",
				"retailer", result.Retailer, "status", result.Status, "error", result.Err)
			continue
		}
		listings = append(listings, result.Listings...)
	}

	emit(listings)
}

func resolveAdapters(names string) ([]scraper.Retailer, error) {
	var adapters []scraper.Retailer
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch {
		case strings.EqualFold(name, string(listing.RetailerCarMax)):
			adapters = append(adapters, scraper.NewCarMax())
		case strings.EqualFold(name, string(listing.RetailerAutoTrader)):
			adapters = append(adapters, scraper.NewAutoTrader())
		case strings.EqualFold(name, string(listing.RetailerKBB)):
			adapters = append(adapters, scraper.NewKBB())
		case strings.EqualFold(name, string(listing.RetailerTrueCar)):
			adapters = append(adapters, scraper.NewTrueCar())
		default:
			return nil, fmt.Errorf("unknown retailer: %s", name)
		}
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no retailers selected")
	}
	return adapters, nil
}

func emit(data interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func fail(message string) {
	json.NewEncoder(os.Stdout).Encode(map[string]string{"error": message})
	os.Exit(1)
}
