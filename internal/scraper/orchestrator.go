package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/metrics"
	"github.com/carscout/carscout/internal/parser"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/ratelimit"
)

// Status is the terminal condition of one retailer acquisition.
type Status string

const (
	StatusOK        Status = "ok"
	StatusBlocked   Status = "blocked"
	StatusNoResults Status = "no_results"
	StatusEmpty     Status = "empty"
	StatusError     Status = "error"
)

// Result is the outcome of one retailer's acquisition run. Blocked and
// no-results outcomes are terminal but carry no error: the pipeline handled
// them, there is simply nothing to return.
type Result struct {
	AcquisitionID string
	Retailer      listing.Retailer
	Channel       Channel
	Status        Status
	Listings      []listing.Listing
	Duration      time.Duration
	Err           error
}

// Options tunes an Orchestrator.
type Options struct {
	// MaxResults caps listings per retailer.
	MaxResults int
	// NavTimeout bounds each page navigation.
	NavTimeout time.Duration
	// SettleDelay is the pause after navigation before the page is read,
	// and between scroll steps.
	SettleDelay time.Duration
	// Warmup enables a homepage visit before the search navigation.
	Warmup bool
}

func DefaultOptions() Options {
	return Options{
		MaxResults:  10,
		NavTimeout:  60 * time.Second,
		SettleDelay: 5 * time.Second,
		Warmup:      true,
	}
}

// Orchestrator runs the two-channel acquisition pipeline: try a retailer's
// fast structured channel first, fall back to a rendered browser page, then
// classify, extract and dedupe.
type Orchestrator struct {
	pages   browser.PageFactory
	fast    map[listing.Retailer]FastSearcher
	limits  *ratelimit.Registry
	metrics *metrics.Metrics
	opts    Options
	logger  *slog.Logger
}

func NewOrchestrator(pages browser.PageFactory, limits *ratelimit.Registry, m *metrics.Metrics, opts Options) *Orchestrator {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultOptions().NavTimeout
	}
	if limits == nil {
		limits = ratelimit.NewRegistry(2*time.Second, 5*time.Second)
	}
	return &Orchestrator{
		pages:   pages,
		fast:    map[listing.Retailer]FastSearcher{},
		limits:  limits,
		metrics: m,
		opts:    opts,
		logger:  slog.Default().With("component", "orchestrator"),
	}
}

// RegisterFast attaches a structured fast channel to a retailer.
func (o *Orchestrator) RegisterFast(name listing.Retailer, searcher FastSearcher) {
	o.fast[name] = searcher
}

// Acquire runs one retailer end to end and never panics the pipeline: every
// outcome, including blocks and navigation failures, comes back as a Result.
func (o *Orchestrator) Acquire(ctx context.Context, r Retailer, q *query.CanonicalQuery, maxResults int) Result {
	if maxResults <= 0 {
		maxResults = o.opts.MaxResults
	}

	result := Result{
		AcquisitionID: uuid.NewString(),
		Retailer:      r.Name(),
	}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		o.metrics.ObserveDuration(string(r.Name()), result.Duration)
	}()

	log := o.logger.With("acquisition_id", result.AcquisitionID, "retailer", r.Name())

	// Fast channel first, but only when the query is structured enough for
	// it. Empty fast results are not trusted as terminal: the rendered page
	// may still find inventory the API misses.
	if searcher, ok := o.fast[r.Name()]; ok && q.HasMakeAndModel() {
		o.metrics.IncAcquisition(string(r.Name()), string(ChannelFast))
		listings, err := searcher.SearchFast(ctx, q, maxResults)
		if err == nil && len(listings) > 0 {
			log.Info("fast channel succeeded", "listings", len(listings))
			o.metrics.AddListings(string(r.Name()), len(listings))
			result.Channel = ChannelFast
			result.Status = StatusOK
			result.Listings = listings
			return result
		}
		if err != nil {
			log.Warn("fast channel failed, falling back to rendered page", "error", err)
		} else {
			log.Info("fast channel returned nothing, falling back to rendered page")
		}
		o.metrics.IncFallback(string(r.Name()))
	}

	result.Channel = ChannelRendered
	o.acquireRendered(ctx, log, r, q, maxResults, &result)
	return result
}

func (o *Orchestrator) acquireRendered(ctx context.Context, log *slog.Logger, r Retailer, q *query.CanonicalQuery, maxResults int, result *Result) {
	name := string(r.Name())
	o.metrics.IncAcquisition(name, string(ChannelRendered))

	limiter := o.limits.For(name)
	if err := limiter.Wait(ctx); err != nil {
		result.Status = StatusError
		result.Err = err
		return
	}

	req, err := r.BuildRequest(q, maxResults)
	if err != nil {
		result.Status = StatusError
		result.Err = fmt.Errorf("failed to build request: %w", err)
		o.metrics.IncError(name, "build_request")
		return
	}

	page, err := o.pages.NewPage()
	if err != nil {
		result.Status = StatusError
		result.Err = fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
		o.metrics.IncError(name, "capability")
		return
	}
	defer page.Close()

	if o.opts.Warmup && req.HomeURL != "" {
		if err := page.Navigate(req.HomeURL, o.opts.NavTimeout); err != nil {
			log.Warn("homepage warmup failed", "error", err)
		} else {
			time.Sleep(o.opts.SettleDelay)
		}
	}

	log.Info("loading search page", "url", req.URL)
	if err := page.Navigate(req.URL, o.opts.NavTimeout); err != nil {
		limiter.RecordError()
		result.Status = StatusError
		result.Err = fmt.Errorf("navigation failed: %w", err)
		o.metrics.IncError(name, "navigation")
		return
	}
	time.Sleep(o.opts.SettleDelay)

	if req.LinkSelector != "" {
		count := scrollUntilStable(page, req.LinkSelector, maxResults, o.opts.SettleDelay/3)
		log.Debug("scroll settled", "links", count)
	}

	bodyText, err := page.BodyText()
	if err != nil {
		limiter.RecordError()
		result.Status = StatusError
		result.Err = fmt.Errorf("failed to read page text: %w", err)
		o.metrics.IncError(name, "read_page")
		return
	}

	switch r.Classify(bodyText) {
	case parser.VerdictBlocked:
		log.Warn("page classified as blocked")
		limiter.RecordError()
		o.metrics.IncBlocked(name)
		result.Status = StatusBlocked
		return
	case parser.VerdictNoResults:
		log.Info("no matching inventory")
		limiter.RecordSuccess()
		result.Status = StatusNoResults
		return
	case parser.VerdictEmpty:
		log.Warn("page rendered no text")
		limiter.RecordError()
		result.Status = StatusEmpty
		return
	}

	candidates, err := r.Extract(page, maxResults)
	if err != nil {
		limiter.RecordError()
		result.Status = StatusError
		result.Err = fmt.Errorf("extraction failed: %w", err)
		o.metrics.IncError(name, "extract")
		return
	}
	limiter.RecordSuccess()

	var listings []listing.Listing
	for _, c := range listing.Dedupe(candidates) {
		if c.Price <= 0 {
			continue
		}
		listings = append(listings, c.ToListing(r.Name()))
		if len(listings) >= maxResults {
			break
		}
	}

	log.Info("extraction complete", "candidates", len(candidates), "listings", len(listings))
	o.metrics.AddListings(name, len(listings))
	result.Status = StatusOK
	result.Listings = listings
}

// AcquireAll fans out over the retailers concurrently. Results come back in
// the given retailer order regardless of completion order.
func (o *Orchestrator) AcquireAll(ctx context.Context, retailers []Retailer, q *query.CanonicalQuery, maxResults int) []Result {
	results := make([]Result, len(retailers))
	var wg sync.WaitGroup

	for i, r := range retailers {
		wg.Add(1)
		go func(i int, r Retailer) {
			defer wg.Done()
			results[i] = o.Acquire(ctx, r, q, maxResults)
		}(i, r)
	}

	wg.Wait()
	return results
}
