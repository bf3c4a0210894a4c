package exif

import (
	"context"
	"log/slog"
	"time"

	"github.com/ironsheep/exif-extractor-mcp/internal/imaging"
	"github.com/ironsheep/exif-extractor-mcp/internal/metrics"
)

// NoEXIFNote is attached to results whose image carried no readable metadata.
const NoEXIFNote = "no EXIF metadata found"

// Extractor runs one extract_exif request from raw input to Result:
// Received, Resolved, Sniffed, Decoded (or Empty), Projected.
//
// An Extractor holds only immutable collaborators and is safe for concurrent
// use; every request builds its own input, policy and options.
type Extractor struct {
	fetcher *Fetcher
	decoder Decoder
	logger  *slog.Logger
	metrics metrics.Recorder
}

// ExtractorOptions configures NewExtractor. Zero fields get defaults.
type ExtractorOptions struct {
	Fetcher *Fetcher
	Decoder Decoder
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// NewExtractor builds an Extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(nil, "")
	}
	if opts.Decoder == nil {
		opts.Decoder = GoexifDecoder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return &Extractor{
		fetcher: opts.Fetcher,
		decoder: opts.Decoder,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Extract resolves raw (a URL or data URI), validates the bytes and projects
// their metadata.
//
// Errors are *Error values of one of the terminal kinds: invalid_input,
// invalid_encoding, fetch_timeout, fetch_error, payload_too_large or
// unsupported_format. A missing or unreadable metadata segment is not an
// error: the result then has HasEXIF false and Note set.
func (e *Extractor) Extract(ctx context.Context, raw string, policy FetchPolicy, opts Options) (*Result, error) {
	start := time.Now()
	var source SourceKind

	result, err := e.extract(ctx, raw, policy, opts, &source)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "internal"
		}
	case !result.HasEXIF:
		outcome = "no_exif"
	}
	elapsed := time.Since(start)
	e.metrics.ObserveExtraction(string(source), outcome, elapsed.Seconds())

	attrs := []any{
		slog.String("source", string(source)),
		slog.String("outcome", outcome),
		slog.Duration("elapsed", elapsed),
	}
	if result != nil {
		attrs = append(attrs, slog.Int("bytes", result.SizeBytes), slog.String("format", result.Format))
	}
	if err != nil {
		e.logger.Info("extraction failed", append(attrs, slog.String("error", err.Error()))...)
	} else {
		e.logger.Debug("extraction finished", attrs...)
	}

	return result, err
}

func (e *Extractor) extract(ctx context.Context, raw string, policy FetchPolicy, opts Options, source *SourceKind) (*Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, wrapError(KindInvalidInput, "extract", "invalid fetch policy", err)
	}

	// Resolved.
	input, err := ParseInput(raw, policy.MaxBytes)
	if err != nil {
		return nil, err
	}
	*source = input.Kind

	data := input.Data
	if input.Kind == SourceURL {
		data, err = e.fetcher.Fetch(ctx, input.URL, policy)
		if err != nil {
			return nil, err
		}
		e.metrics.ObserveFetchedBytes(len(data))
	}

	// Sniffed.
	info, err := imaging.Probe(data)
	if err != nil {
		return nil, wrapError(KindUnsupportedFormat, "sniff format", "image is not a readable JPEG or PNG", err)
	}
	if input.Kind == SourceDataURI && input.MediaType != info.Format.MediaType() {
		e.logger.Debug("declared media type differs from content",
			slog.String("declared", input.MediaType),
			slog.String("detected", info.Format.MediaType()))
	}

	// Decoded or Empty.
	tags, err := e.decoder.Decode(info.Format, data)
	if err != nil {
		if !IsKind(err, KindDecode) {
			return nil, err
		}
		e.logger.Debug("no metadata decoded", slog.String("reason", err.Error()))
		tags = nil
	}

	// Projected.
	result := Project(info, tags, opts)
	result.Source = input.Kind
	if !result.HasEXIF {
		result.Note = NoEXIFNote
	}
	return result, nil
}
