package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jeovahfialho/stock-series/internal/domain"
	"github.com/jeovahfialho/stock-series/internal/ingestion"
	"github.com/jeovahfialho/stock-series/internal/storage/jsonfile"
	"github.com/jeovahfialho/stock-series/pkg/logger"
	"github.com/jeovahfialho/stock-series/pkg/metrics"
	"go.uber.org/zap"
)

const (
	tableInstrument = "instrument"
	tableIndex      = "index"
)

type WriterFunc func(path string, doc *domain.Document, pretty bool) error

type BuildOptions struct {
	InstrumentFile string
	IndexFile      string
	OutputFile     string
	Pretty         bool
	SkipInvalid    bool
	Round          Rounder
	PriceColumns   domain.PriceColumns
	IndexColumns   domain.IndexColumns
}

type IngestionService struct {
	parser *ingestion.Parser
	opts   BuildOptions
	write  WriterFunc
}

func NewIngestionService(parser *ingestion.Parser, opts BuildOptions) *IngestionService {
	if opts.Round == nil {
		opts.Round, _ = NewRounder("")
	}
	if opts.PriceColumns == (domain.PriceColumns{}) {
		opts.PriceColumns = domain.DefaultPriceColumns
	}
	if opts.IndexColumns == (domain.IndexColumns{}) {
		opts.IndexColumns = domain.DefaultIndexColumns
	}

	return &IngestionService{
		parser: parser,
		opts:   opts,
		write:  jsonfile.WriteDocument,
	}
}

// WithWriter troca a função que grava o documento.
func (s *IngestionService) WithWriter(write WriterFunc) *IngestionService {
	s.write = write
	return s
}

type BuildResult struct {
	OutputFile    string
	Candles       int
	IndexPoints   int
	SkippedPrices int
	SkippedIndex  int
	Elapsed       time.Duration
	FirstDate     string
	LastDate      string
}

// BuildDocument carrega, normaliza e projeta as duas tabelas. Nada é gravado.
func (s *IngestionService) BuildDocument(ctx context.Context) (*domain.Document, *BuildResult, error) {
	log := logger.WithContext(ctx)
	result := &BuildResult{OutputFile: s.opts.OutputFile}

	timer := metrics.NewTimer()
	prices, err := s.parser.LoadPrices(ctx, s.opts.InstrumentFile, s.opts.PriceColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao carregar ativo: %w", err)
	}
	timer.ObserveStage("load_instrument")
	metrics.RecordRowsLoaded(tableInstrument, len(prices.Rows))
	log.Info("tabela do ativo carregada",
		zap.String("file", s.opts.InstrumentFile),
		zap.Int("rows", len(prices.Rows)),
		zap.Int("skipped", len(prices.Skipped)))

	timer = metrics.NewTimer()
	index, err := s.parser.LoadIndex(ctx, s.opts.IndexFile, s.opts.IndexColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao carregar índice: %w", err)
	}
	timer.ObserveStage("load_index")
	metrics.RecordRowsLoaded(tableIndex, len(index.Rows))
	log.Info("tabela do índice carregada",
		zap.String("file", s.opts.IndexFile),
		zap.Int("rows", len(index.Rows)),
		zap.Int("skipped", len(index.Skipped)))

	timer = metrics.NewTimer()
	priceRows := NormalizePrices(prices.Rows, s.opts.Round)
	indexRows := NormalizeIndex(index.Rows, s.opts.Round)
	timer.ObserveStage("normalize")

	if dups := countDuplicateDates(priceRows); dups > 0 {
		log.Warn("datas repetidas na tabela do ativo", zap.Int("count", dups))
	}

	timer = metrics.NewTimer()
	candles, skippedCandles, err := ProjectCandles(priceRows, s.opts.SkipInvalid)
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao converter %s: %w", s.opts.InstrumentFile, err)
	}
	for _, skipErr := range skippedCandles {
		log.Warn("linha ignorada", zap.String("file", s.opts.InstrumentFile), zap.Error(skipErr))
	}
	points := ProjectIndex(indexRows)
	timer.ObserveStage("project")

	result.SkippedPrices = len(prices.Skipped) + len(skippedCandles)
	result.SkippedIndex = len(index.Skipped)
	metrics.RecordRowsSkipped(tableInstrument, result.SkippedPrices)
	metrics.RecordRowsSkipped(tableIndex, result.SkippedIndex)

	doc := Assemble(candles, points)
	result.Candles = len(doc.TimeSeries)
	result.IndexPoints = len(doc.SP500Series)
	if n := len(doc.TimeSeries); n > 0 {
		result.FirstDate = doc.TimeSeries[0].Date
		result.LastDate = doc.TimeSeries[n-1].Date
	}

	return doc, result, nil
}

// Run executa o build completo. O documento só é gravado depois que as
// duas entradas foram carregadas e projetadas sem erro.
func (s *IngestionService) Run(ctx context.Context) (*BuildResult, error) {
	runTimer := metrics.NewTimer()

	doc, result, err := s.BuildDocument(ctx)
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	if err := s.write(s.opts.OutputFile, doc, s.opts.Pretty); err != nil {
		metrics.RecordDocumentWritten(false)
		return nil, fmt.Errorf("erro ao gravar %s: %w", s.opts.OutputFile, err)
	}
	timer.ObserveStage("write")
	metrics.RecordDocumentWritten(true)

	result.Elapsed = runTimer.Elapsed()
	logger.WithContext(ctx).Info("documento gravado",
		zap.String("file", s.opts.OutputFile),
		zap.Int("candles", result.Candles),
		zap.Int("index_points", result.IndexPoints),
		zap.String("first_date", result.FirstDate),
		zap.String("last_date", result.LastDate),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func countDuplicateDates(rows []domain.PriceRow) int {
	dups := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.Equal(rows[i-1].Date) {
			dups++
		}
	}
	return dups
}
