// Package lookup answers postal code queries from the address store and falls
// back to scraping the upstream site on a miss.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/cl-postal-codes/internal/metrics"
	"github.com/JakeFAU/cl-postal-codes/internal/normalize"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
	"github.com/JakeFAU/cl-postal-codes/internal/scraper"
)

// ErrInvalidInput marks queries rejected before any lookup happens.
var ErrInvalidInput = errors.New("invalid input")

// ErrScrapeFailed marks lookups whose scrape ended in a failed Outcome.
var ErrScrapeFailed = errors.New("scrape failed")

var tracer = otel.Tracer("github.com/JakeFAU/cl-postal-codes/internal/lookup")

// Default and maximum page sizes for List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Event topics.
const TopicResolved = "postal_code.resolved"

// Resolver runs the scrape pipeline. *scraper.Pipeline satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, req scraper.Request) (scraper.Outcome, error)
}

// ScrapeError carries the failed Outcome of a scrape.
type ScrapeError struct {
	Outcome scraper.Outcome
}

func (e *ScrapeError) Error() string {
	return e.Outcome.Error
}

// Is lets errors.Is(err, ErrScrapeFailed) match.
func (e *ScrapeError) Is(target error) bool {
	return target == ErrScrapeFailed
}

// Query is a caller supplied address.
type Query struct {
	Commune string
	Street  string
	Number  string
}

// Page is one slice of stored addresses.
type Page struct {
	Data []postal.Address `json:"data"`
	Meta PageMeta         `json:"meta"`
}

// PageMeta describes a Page.
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Config controls optional behavior of the Service.
type Config struct {
	// Topic receives a ResolvedEvent after every scraped and stored address.
	// Empty disables publishing.
	Topic string
}

// Service is the cache-then-scrape lookup.
type Service struct {
	store     postal.AddressStore
	communes  postal.CommuneStore
	resolver  Resolver
	publisher postal.Publisher
	ids       postal.IDGenerator
	clock     postal.Clock
	cfg       Config
	logger    *zap.Logger
	group     singleflight.Group
}

// New constructs a Service. publisher may be nil.
func New(
	store postal.AddressStore,
	communes postal.CommuneStore,
	resolver Resolver,
	publisher postal.Publisher,
	ids postal.IDGenerator,
	clock postal.Clock,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		communes:  communes,
		resolver:  resolver,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.Named("lookup"),
	}
}

// FindOrScrape returns the stored address for q or scrapes and stores it.
// Communes missing from the catalogue yield postal.ErrNotFound without a
// scrape. A failed scrape returns a *ScrapeError; browser faults are returned
// as is.
func (s *Service) FindOrScrape(ctx context.Context, q Query) (postal.Address, error) {
	commune := strings.TrimSpace(q.Commune)
	street := strings.TrimSpace(q.Street)
	number := strings.TrimSpace(q.Number)
	switch {
	case number == "":
		return postal.Address{}, fmt.Errorf("%w: street number cannot be empty", ErrInvalidInput)
	case commune == "":
		return postal.Address{}, fmt.Errorf("%w: commune cannot be empty", ErrInvalidInput)
	case street == "":
		return postal.Address{}, fmt.Errorf("%w: street cannot be empty", ErrInvalidInput)
	}

	key := postal.AddressKey{
		Commune: normalize.Text(commune),
		Street:  normalize.Text(street),
		Number:  number,
	}
	logger := s.logger.With(zap.String("key", key.String()))
	logger.Debug("normalized input")

	ctx, span := tracer.Start(ctx, "lookup.FindOrScrape", trace.WithAttributes(
		attribute.String("postal.commune", key.Commune),
		attribute.String("postal.street", key.Street),
		attribute.String("postal.number", key.Number),
	))
	defer span.End()

	known, err := s.communes.FindCommune(ctx, key.Commune)
	if errors.Is(err, postal.ErrNotFound) {
		logger.Warn("commune not found", zap.String("commune", commune))
		metrics.ObserveLookup("catalogue", metrics.OutcomeFailure)
		return postal.Address{}, fmt.Errorf("commune '%s': %w", commune, postal.ErrNotFound)
	}
	if err != nil {
		return postal.Address{}, fmt.Errorf("find commune: %w", err)
	}
	span.SetAttributes(attribute.String("postal.region", known.Region))

	addr, err := s.store.FindAddress(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.String("lookup.source", "cache"))
		metrics.ObserveLookup("cache", metrics.OutcomeSuccess)
		logger.Debug("cache hit", zap.String("postal_code", addr.PostalCode))
		return addr, nil
	}
	if !errors.Is(err, postal.ErrNotFound) {
		return postal.Address{}, fmt.Errorf("find address: %w", err)
	}

	// Concurrent lookups of the same address share one scrape.
	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		return s.scrapeAndStore(ctx, key, known, scraper.Request{Commune: key.Commune, Street: key.Street, Number: key.Number})
	})
	if shared {
		logger.Debug("joined in-flight scrape")
	}
	span.SetAttributes(attribute.String("lookup.source", "scrape"), attribute.Bool("lookup.shared", shared))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveLookup("scrape", metrics.OutcomeFailure)
		return postal.Address{}, err
	}
	metrics.ObserveLookup("scrape", metrics.OutcomeSuccess)
	return v.(postal.Address), nil
}

func (s *Service) scrapeAndStore(ctx context.Context, key postal.AddressKey, commune postal.Commune, req scraper.Request) (postal.Address, error) {
	outcome, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return postal.Address{}, err
	}
	if !outcome.OK() {
		s.logger.Error("scraping failed", zap.String("key", key.String()), zap.String("error", outcome.Error))
		return postal.Address{}, &ScrapeError{Outcome: outcome}
	}

	id, err := s.ids.NewID()
	if err != nil {
		return postal.Address{}, fmt.Errorf("generate id: %w", err)
	}
	addr := postal.Address{
		ID:         id,
		Commune:    key.Commune,
		Street:     key.Street,
		Number:     key.Number,
		Region:     strings.ToUpper(commune.Region),
		PostalCode: strings.TrimSpace(outcome.PostalCode),
		CreatedAt:  s.clock.Now().UTC(),
	}
	stored, err := s.store.SaveAddress(ctx, addr)
	if err != nil {
		return postal.Address{}, fmt.Errorf("save address: %w", err)
	}
	if stored.ID != addr.ID {
		s.logger.Warn("address stored concurrently, reusing existing row", zap.String("id", stored.ID))
	}
	s.logger.Info("address resolved",
		zap.String("key", key.String()),
		zap.String("postal_code", stored.PostalCode),
	)
	s.publishResolved(ctx, stored)
	return stored, nil
}

func (s *Service) publishResolved(ctx context.Context, addr postal.Address) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	event := postal.ResolvedEvent{
		AddressID:  addr.ID,
		Commune:    addr.Commune,
		Street:     addr.Street,
		Number:     addr.Number,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		ResolvedAt: s.clock.Now().UTC(),
	}
	msgID, err := s.publisher.Publish(ctx, s.cfg.Topic, event)
	if err != nil {
		s.logger.Warn("publish resolved event failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
		return
	}
	s.logger.Debug("resolved event published", zap.String("message_id", msgID))
}

// FindByCode lists every stored address with the given postal code.
func (s *Service) FindByCode(ctx context.Context, code string) ([]postal.Address, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: postal code cannot be empty", ErrInvalidInput)
	}
	addrs, err := s.store.ListByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("list by code: %w", err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("postal code '%s': %w", code, postal.ErrNotFound)
	}
	return addrs, nil
}

// List returns a page of stored addresses. limit is clamped to [1, MaxLimit]
// and page to at least 1.
func (s *Service) List(ctx context.Context, page, limit int) (Page, error) {
	limit = min(max(limit, 1), MaxLimit)
	page = max(page, 1)
	addrs, total, err := s.store.ListAddresses(ctx, limit, (page-1)*limit)
	if err != nil {
		return Page{}, fmt.Errorf("list addresses: %w", err)
	}
	if addrs == nil {
		addrs = []postal.Address{}
	}
	s.logger.Debug("list",
		zap.Int("page", page),
		zap.Int("limit", limit),
		zap.Int("returned", len(addrs)),
		zap.Int("total", total),
	)
	return Page{Data: addrs, Meta: PageMeta{Total: total, Page: page, Limit: limit}}, nil
}
