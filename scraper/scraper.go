package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/parser"
	"github.com/aluiziolira/go-archive-books/pipeline"
)

// Scraper drives an archive run: it enumerates book IDs, resolves them one
// by one, stores their payloads and feeds the manifest.
type Scraper struct {
	cfg      *config.Config
	fetcher  *Fetcher
	walker   *Walker
	resolver *Resolver
	archive  *pipeline.Archive
	Metrics  *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	sel := parser.DefaultSelectors()
	walker, err := NewWalker(fetcher, sel, cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(fetcher, sel, cfg)
	if err != nil {
		return nil, err
	}
	archive, err := pipeline.NewArchive(cfg.DestFolder)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:      cfg,
		fetcher:  fetcher,
		walker:   walker,
		resolver: resolver,
		archive:  archive,
		Metrics:  metrics,
	}, nil
}

// RunCategory walks the configured category page range and archives every
// book found on it. An invalid page range aborts the run before any book
// is resolved.
func (s *Scraper) RunCategory(ctx context.Context, m *pipeline.Manifest) (*models.RunResult, error) {
	categoryURL, err := s.cfg.CategoryURL()
	if err != nil {
		return nil, err
	}
	r := models.PageRange{Start: s.cfg.StartPage, End: s.cfg.EndPage}

	slog.Info("walking category",
		slog.String("category", categoryURL),
		slog.String("pages", r.String()),
	)
	urls, err := s.walker.Walk(ctx, categoryURL, r)
	if err != nil {
		if ctx.Err() == nil {
			s.Metrics.IncError(errorTypeLabel(err))
		}
		return nil, err
	}

	ids := make([]models.BookID, 0, len(urls))
	for _, u := range urls {
		id, err := parser.ParseBookID(u)
		if err != nil {
			slog.Warn("skipping unrecognised book link",
				slog.String("url", u),
				slog.Any("error", err),
			)
			continue
		}
		ids = append(ids, id)
	}
	return s.RunBooks(ctx, ids, m)
}

// RunBooks archives the given book IDs in order. Each ID is attempted at
// most once per run. Per-book failures are logged and counted; only
// cancellation stops the run early.
func (s *Scraper) RunBooks(ctx context.Context, ids []models.BookID, m *pipeline.Manifest) (*models.RunResult, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st := &runState{
		result: &models.RunResult{
			StartTime:    time.Now(),
			ErrorsByType: make(map[string]int),
		},
	}
	requestsBefore := s.fetcher.RequestCount()
	seen := make(map[models.BookID]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st.result.Attempted++
		if err := s.processBook(ctx, id, m, st); err != nil {
			return nil, err
		}
		if st.result.Attempted%50 == 0 {
			slog.Debug("archive progress",
				slog.Int("attempted", st.result.Attempted),
				slog.Int("archived", len(st.result.Books)),
				slog.Int("requests", s.fetcher.RequestCount()-requestsBefore),
			)
		}
	}

	st.result.EndTime = time.Now()
	st.result.RequestCount = s.fetcher.RequestCount() - requestsBefore
	st.result.PageCount = s.walker.PagesFetched()
	return st.result, nil
}

type runState struct {
	result *models.RunResult
}

func (st *runState) fail(id models.BookID, label string) {
	st.result.ErrorCount++
	st.result.ErrorsByType[label]++
	st.result.FailedIDs = append(st.result.FailedIDs, id)
}

// processBook returns an error only when the run must stop.
func (s *Scraper) processBook(ctx context.Context, id models.BookID, m *pipeline.Manifest, st *runState) error {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.recordFailure(st, id, err)
		return nil
	}

	if res.Status == StatusAbsent {
		slog.Debug("book absent",
			slog.Int("book_id", int(id)),
			slog.String("url", res.AbsentAt),
		)
		st.result.AbsentCount++
		s.Metrics.IncAbsent()
		return nil
	}

	book := res.Book
	if res.ImageErr != nil {
		slog.Warn("cover unavailable, archiving without image",
			slog.Int("book_id", int(id)),
			slog.String("image_url", book.ImageURL),
			slog.Any("error", res.ImageErr),
		)
		st.result.ImagesMissing++
		s.Metrics.IncImageMissing()
	}

	if res.TextName != "" {
		path, err := s.archive.WriteText(res.Text, res.TextName)
		if err != nil {
			s.recordFailure(st, id, &ArchiveError{BookID: id, Err: err})
			return nil
		}
		book.TextPath = path
	}
	if res.ImageName != "" {
		path, err := s.archive.WriteImage(res.Image, res.ImageName)
		if err != nil {
			s.recordFailure(st, id, &ArchiveError{BookID: id, Err: err})
			return nil
		}
		book.ImagePath = path
	}

	if err := m.Add(book); err != nil {
		if errors.Is(err, pipeline.ErrManifestClosed) {
			return err
		}
		slog.Warn("manifest rejected book",
			slog.Int("book_id", int(id)),
			slog.Any("error", err),
		)
		st.fail(id, "manifest")
		s.Metrics.IncError("manifest")
		return nil
	}

	st.result.Books = append(st.result.Books, book)
	s.Metrics.IncArchived()
	slog.Info("book archived",
		slog.Int("book_id", int(id)),
		slog.String("title", book.Title),
		slog.String("author", book.Author),
	)
	return nil
}

func (s *Scraper) recordFailure(st *runState, id models.BookID, err error) {
	label := errorTypeLabel(err)
	st.fail(id, label)
	s.Metrics.IncError(label)
	slog.Error("book failed",
		slog.Int("book_id", int(id)),
		slog.String("category", label),
		slog.Any("error", err),
	)
}
