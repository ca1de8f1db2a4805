// Package pipeline chains the ingestion stages for one domain: crawl,
// clean, transform, snapshot, load, and the run-completion event. Everything
// after the orchestrator join point is single-threaded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/cleaning"
	"github.com/envimetry/pipeline/internal/registry"
	"github.com/envimetry/pipeline/internal/schema"
	"github.com/envimetry/pipeline/internal/snapshot"
	"github.com/envimetry/pipeline/internal/telemetry"
	"github.com/envimetry/pipeline/internal/transform"
)

// Crawler produces a raw batch for a domain. The orchestrator implements it.
type Crawler interface {
	Run(ctx context.Context, domain string, locations []telemetry.Location) (telemetry.Batch, error)
}

// Loader persists a transformed dataset. The Postgres loader implements it.
type Loader interface {
	Load(ctx context.Context, s telemetry.Schema, ds transform.Dataset) error
}

// Service wires the stages for every domain.
type Service struct {
	registry  *registry.Registry
	crawlers  map[string]Crawler
	loader    Loader
	blobs     telemetry.BlobStore
	publisher telemetry.Publisher
	idgen     telemetry.IDGenerator
	clock     telemetry.Clock
	logger    *zap.Logger
	topic     string
}

// Options configures optional service collaborators.
type Options struct {
	// Blobs receives one CSV artifact per run; nil disables snapshots.
	Blobs telemetry.BlobStore
	// Publisher receives a RunEvent after each successful load; nil
	// disables events.
	Publisher telemetry.Publisher
	// Topic names the event destination.
	Topic string
}

// New builds a Service. The crawlers map is keyed by domain; a domain
// without a crawler still supports the reprocess path.
func New(reg *registry.Registry, crawlers map[string]Crawler, loader Loader,
	idgen telemetry.IDGenerator, clock telemetry.Clock, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:  reg,
		crawlers:  crawlers,
		loader:    loader,
		blobs:     opts.Blobs,
		publisher: opts.Publisher,
		idgen:     idgen,
		clock:     clock,
		logger:    logger,
		topic:     opts.Topic,
	}
}

// CrawlRequest selects the locations for one crawl run. Explicit Locations
// override the registry; otherwise Filter narrows the registered set.
type CrawlRequest struct {
	Locations []telemetry.Location
	Filter    registry.Filter
}

// CrawlResult is the outcome of one crawl-and-load run.
type CrawlResult struct {
	Success        bool                              `json:"success"`
	RunID          string                            `json:"run_id"`
	Domain         string                            `json:"domain"`
	TotalRecords   int                               `json:"total_records"`
	TotalLocations int                               `json:"total_locations"`
	CSVContent     string                            `json:"csv_content,omitempty"`
	CSVFile        string                            `json:"csv_file,omitempty"`
	DataSources    map[string]telemetry.SourceCounts `json:"data_sources"`
}

// ProcessResult is the outcome of reprocessing submitted CSV content.
type ProcessResult struct {
	Status      string           `json:"status"`
	RunID       string           `json:"run_id"`
	Domain      string           `json:"domain"`
	RecordCount int              `json:"record_count"`
	Columns     []string         `json:"columns"`
	Data        []map[string]any `json:"data"`
	CleanedFile string           `json:"cleaned_file,omitempty"`
}

// RunEvent is the payload published after a successful load.
type RunEvent struct {
	RunID       string                            `json:"run_id"`
	Domain      string                            `json:"domain"`
	CompletedAt time.Time                         `json:"completed_at"`
	Records     int                               `json:"records"`
	Sources     map[string]telemetry.SourceCounts `json:"sources,omitempty"`
}

// RunCrawl crawls the requested locations for a domain and pushes the batch
// through cleaning, snapshot, transform, and load. Per-task failures stay in
// the counts; only all-sources-failed, batch-empty, and store errors
// propagate.
func (s *Service) RunCrawl(ctx context.Context, domain string, req CrawlRequest) (CrawlResult, error) {
	sch, err := schema.ByDomain(domain)
	if err != nil {
		return CrawlResult{}, err
	}
	crawler, ok := s.crawlers[domain]
	if !ok {
		return CrawlResult{}, fmt.Errorf("no crawler configured for domain %q", domain)
	}

	locations := req.Locations
	if len(locations) == 0 {
		locations = s.registry.List(req.Filter)
	}
	res := CrawlResult{
		Domain:         domain,
		TotalLocations: len(locations),
	}

	batch, err := crawler.Run(ctx, domain, locations)
	res.RunID = batch.RunID
	res.DataSources = batch.Counts
	if err != nil {
		if errors.Is(err, telemetry.ErrAllSourcesFailed) {
			return res, err
		}
		return res, fmt.Errorf("crawl %s: %w", domain, err)
	}

	engine := cleaning.NewEngine(sch, cleaning.WithLogger(s.logger))
	cleaned, err := engine.Clean(batch)
	if err != nil {
		return res, err
	}
	res.TotalRecords = len(cleaned.Readings)

	csvData, err := snapshot.Encode(sch, cleaned)
	if err != nil {
		return res, fmt.Errorf("encode snapshot: %w", err)
	}
	res.CSVContent = string(csvData)
	res.CSVFile = s.storeSnapshot(ctx, domain, cleaned.RunID, csvData)

	ds := transform.Transform(sch, cleaned)
	if err := s.loader.Load(ctx, sch, ds); err != nil {
		return res, err
	}

	res.Success = true
	s.publishEvent(ctx, RunEvent{
		RunID:       cleaned.RunID,
		Domain:      domain,
		CompletedAt: s.now(),
		Records:     len(cleaned.Readings),
		Sources:     cleaned.Counts,
	})
	s.logger.Info("crawl run complete",
		zap.String("domain", domain),
		zap.String("run_id", cleaned.RunID),
		zap.Int("records", len(cleaned.Readings)),
		zap.Int("locations", len(locations)))
	return res, nil
}

// RunProcess cleans, transforms, and loads submitted CSV content.
func (s *Service) RunProcess(ctx context.Context, domain string, content []byte) (ProcessResult, error) {
	sch, err := schema.ByDomain(domain)
	if err != nil {
		return ProcessResult{}, err
	}
	runID, err := s.idgen.NewID()
	if err != nil {
		return ProcessResult{}, err
	}
	res := ProcessResult{Status: "failed", RunID: runID, Domain: domain}

	readings, err := snapshot.Decode(sch, content)
	if err != nil {
		return res, err
	}
	batch := telemetry.Batch{
		Domain:   domain,
		RunID:    runID,
		Readings: readings,
		Counts:   make(map[string]telemetry.SourceCounts),
	}

	engine := cleaning.NewEngine(sch, cleaning.WithLogger(s.logger))
	cleaned, err := engine.Clean(batch)
	if err != nil {
		return res, err
	}
	telemetry.SortReadings(cleaned.Readings)

	csvData, err := snapshot.Encode(sch, cleaned)
	if err != nil {
		return res, fmt.Errorf("encode snapshot: %w", err)
	}
	res.CleanedFile = s.storeSnapshot(ctx, domain, runID, csvData)

	ds := transform.Transform(sch, cleaned)
	if err := s.loader.Load(ctx, sch, ds); err != nil {
		return res, err
	}

	res.Status = "success"
	res.RecordCount = len(cleaned.Readings)
	res.Columns = snapshot.Columns(sch)
	res.Data = recordRows(sch, cleaned.Readings)
	s.publishEvent(ctx, RunEvent{
		RunID:       runID,
		Domain:      domain,
		CompletedAt: s.now(),
		Records:     len(cleaned.Readings),
	})
	return res, nil
}

// recordRows flattens cleaned readings into the row objects carried by the
// process response. Null fields are omitted rather than zero-filled.
func recordRows(s telemetry.Schema, readings []telemetry.Reading) []map[string]any {
	rows := make([]map[string]any, 0, len(readings))
	for _, r := range readings {
		row := map[string]any{
			"timestamp": r.Timestamp.Format(time.RFC3339),
			"source":    r.Source,
			"success":   r.Success,
		}
		for _, f := range s.Fields {
			switch f.Kind {
			case telemetry.KindNumber:
				if v, ok := r.Number(f.Name); ok {
					row[f.Name] = v
				}
			default:
				if v, ok := r.String(f.Name); ok {
					row[f.Name] = v
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// storeSnapshot writes the artifact if a blob store is configured. Snapshot
// failures are logged, not fatal: the relational load is the source of truth.
func (s *Service) storeSnapshot(ctx context.Context, domain, runID string, data []byte) string {
	if s.blobs == nil {
		return ""
	}
	name := snapshot.Filename(domain, runID, s.now())
	uri, err := s.blobs.PutObject(ctx, domain+"/"+name, "text/csv", data)
	if err != nil {
		s.logger.Warn("snapshot write failed",
			zap.String("domain", domain),
			zap.String("run_id", runID),
			zap.Error(err))
		return ""
	}
	return uri
}

func (s *Service) publishEvent(ctx context.Context, ev RunEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, ev); err != nil {
		s.logger.Warn("run event publish failed",
			zap.String("domain", ev.Domain),
			zap.String("run_id", ev.RunID),
			zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}
