package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ripestat-abuse/config"
)

// maxBodyBytes caps a single registry response.
const maxBodyBytes = 16 << 20

// Data is what the rendering side consumes for one entity.
type Data struct {
	Summary []string       `json:"summary"`
	Details map[string]any `json:"details"`
}

// LookupResult pairs an entity with its data. Data is nil when the
// registry has nothing for the entity.
type LookupResult struct {
	Entity Entity `json:"entity"`
	Data   *Data  `json:"data"`
}

// Integration issues registry lookups. It is immutable after construction
// and safe for concurrent use.
type Integration struct {
	client      *http.Client
	abuseURL    string
	prefixURL   string
	maxParallel int
	whois       WhoisFunc
	logger      *zap.Logger
}

// Option customizes an Integration.
type Option func(*Integration)

// WithWhois enables WHOIS enrichment during OnDetails.
func WithWhois(fn WhoisFunc) Option {
	return func(i *Integration) {
		i.whois = fn
	}
}

// New wires an Integration around an already configured HTTP client.
func New(client *http.Client, cfg config.LookupConfig, logger *zap.Logger, opts ...Option) *Integration {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = config.DefaultMaxParallel
	}
	if cfg.AbuseURL == "" {
		cfg.AbuseURL = config.DefaultAbuseURL
	}
	if cfg.PrefixURL == "" {
		cfg.PrefixURL = config.DefaultPrefixURL
	}
	i := &Integration{
		client:      client,
		abuseURL:    cfg.AbuseURL,
		prefixURL:   cfg.PrefixURL,
		maxParallel: cfg.MaxParallel,
		logger:      logger.Named("lookup"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Startup builds the HTTP client from cfg.Request and returns the
// Integration every lookup runs through.
func Startup(cfg *config.Config, logger *zap.Logger) (*Integration, error) {
	client, err := NewHTTPClient(cfg.Request)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}
	var opts []Option
	if cfg.Lookup.Whois {
		opts = append(opts, WithWhois(NewWhoisLookup(cfg.Lookup.WhoisServer, cfg.Request.Timeout)))
	}
	i := New(client, cfg.Lookup, logger, opts...)
	i.logger.Info("Integration started",
		zap.Int("max_parallel", i.maxParallel),
		zap.Bool("client_cert", cfg.Request.Cert != ""),
		zap.Bool("custom_ca", cfg.Request.CA != ""),
		zap.Bool("proxy", cfg.Request.Proxy != ""),
		zap.Bool("verify_certificates", cfg.Request.VerifyCertificates()),
		zap.Bool("whois", i.whois != nil),
	)
	return i, nil
}

// DoLookup fetches abuse-contact data for every entity, at most
// maxParallel requests at a time. Results follow the input order. The
// first failing entity fails the whole batch: requests already in flight
// finish, queued ones are skipped and no partial results are returned.
func (i *Integration) DoLookup(ctx context.Context, entities []Entity) ([]LookupResult, error) {
	i.logger.Debug("Lookup entities", zap.Any("entities", entities))

	results := make([]LookupResult, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.maxParallel)

	for idx, entity := range entities {
		idx, entity := idx, entity
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := i.fetch(ctx, i.abuseURL, entity)
			if err != nil {
				return err
			}
			data, err := newData(res)
			if err != nil {
				return err
			}
			results[idx] = LookupResult{Entity: res.entity, Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		i.logger.Error("Lookup failed", zap.Error(err))
		return nil, err
	}

	i.logger.Debug("Results", zap.Any("lookupResults", results))
	return results, nil
}

// OnDetails fetches the announced prefixes of result's entity and stores
// them under Details["prefix"] of the existing data, which is returned.
func (i *Integration) OnDetails(ctx context.Context, result *LookupResult) (*Data, error) {
	if result == nil || result.Data == nil {
		return nil, ErrNoData
	}

	res, err := i.fetch(ctx, i.prefixURL, result.Entity)
	if err != nil {
		i.logger.Error("Error running onDetails lookup", zap.String("entity", result.Entity.Value), zap.Error(err))
		return nil, err
	}
	prefix, err := decodeValue(res)
	if err != nil {
		i.logger.Error("Error running onDetails lookup", zap.String("entity", result.Entity.Value), zap.Error(err))
		return nil, err
	}

	if result.Data.Details == nil {
		result.Data.Details = make(map[string]any)
	}
	result.Data.Details["prefix"] = prefix

	if i.whois != nil {
		record, err := i.whois(ctx, result.Entity)
		if err != nil {
			i.logger.Warn("WHOIS lookup failed", zap.String("entity", result.Entity.Value), zap.Error(err))
		} else {
			result.Data.Details["whois"] = record
		}
	}

	i.logger.Debug("Looking at the data after on details", zap.Any("lookup", prefix))
	return result.Data, nil
}

// fetch performs one GET against endpoint for entity and classifies it.
func (i *Integration) fetch(ctx context.Context, endpoint string, entity Entity) (classifiedResponse, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return classifiedResponse{}, &RequestError{Kind: KindTransport, Detail: detailTransport, Entity: entity, Err: err}
	}
	q := u.Query()
	q.Set("resource", entity.Value)
	u.RawQuery = q.Encode()
	uri := u.String()

	i.logger.Debug("Request URI", zap.String("uri", uri))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return classifiedResponse{}, &RequestError{Kind: KindTransport, Detail: detailTransport, Entity: entity, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var (
		status int
		body   []byte
	)
	resp, err := i.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		status = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	}

	res, cerr := classifyResponse(err, status, body, entity)
	if cerr != nil {
		i.logger.Error("Request failed", zap.String("uri", uri), zap.Int("status", status), zap.Error(cerr))
		return res, cerr
	}
	i.logger.Debug("Response",
		zap.String("uri", uri),
		zap.Int("status", status),
		zap.String("size", humanize.Bytes(uint64(len(body)))),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}
