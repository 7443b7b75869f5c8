package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jeovahfialho/stock-series/internal/domain"
	"github.com/jeovahfialho/stock-series/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Formatos de data aceitos, na ordem de tentativa.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

type Parser struct {
	comma       rune
	skipInvalid bool
}

func NewParser(comma rune, skipInvalid bool) *Parser {
	if comma == 0 {
		comma = ','
	}
	return &Parser{
		comma:       comma,
		skipInvalid: skipInvalid,
	}
}

type PriceResult struct {
	Rows    []domain.PriceRow
	Skipped []error
}

type IndexResult struct {
	Rows    []domain.IndexRow
	Skipped []error
}

func (p *Parser) LoadPrices(ctx context.Context, path string, cols domain.PriceColumns) (*PriceResult, error) {
	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParsePrices(ctx, path, file, cols)
}

func (p *Parser) ParsePrices(ctx context.Context, name string, reader io.Reader, cols domain.PriceColumns) (*PriceResult, error) {
	result := &PriceResult{}

	skipped, err := p.parseTable(ctx, name, reader, cols.Required(), func(rec *record) error {
		date, err := rec.date(cols.Date)
		if err != nil {
			return err
		}

		row := domain.PriceRow{Date: date, Line: rec.line}
		fields := []struct {
			column string
			dest   *decimal.Decimal
		}{
			{cols.Open, &row.Open},
			{cols.High, &row.High},
			{cols.Low, &row.Low},
			{cols.Close, &row.Close},
			{cols.Volume, &row.Volume},
		}
		for _, f := range fields {
			if *f.dest, err = rec.decimal(f.column); err != nil {
				return err
			}
		}

		result.Rows = append(result.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Skipped = skipped
	return result, nil
}

func (p *Parser) LoadIndex(ctx context.Context, path string, cols domain.IndexColumns) (*IndexResult, error) {
	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseIndex(ctx, path, file, cols)
}

func (p *Parser) ParseIndex(ctx context.Context, name string, reader io.Reader, cols domain.IndexColumns) (*IndexResult, error) {
	result := &IndexResult{}

	skipped, err := p.parseTable(ctx, name, reader, cols.Required(), func(rec *record) error {
		date, err := rec.date(cols.Date)
		if err != nil {
			return err
		}

		closeValue, err := rec.decimal(cols.Close)
		if err != nil {
			return err
		}

		result.Rows = append(result.Rows, domain.IndexRow{
			Date:  date,
			Close: closeValue,
			Line:  rec.line,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Skipped = skipped
	return result, nil
}

func openInput(path string) (*os.File, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: erro ao abrir arquivo %s: %v", domain.ErrParse, path, err)
	}
	return file, nil
}

// parseTable lê o cabeçalho, valida as colunas obrigatórias e entrega cada
// linha para decode. Erros de linha abortam a leitura, a menos que o parser
// esteja em modo skipInvalid.
func (p *Parser) parseTable(ctx context.Context, name string, reader io.Reader,
	required []string, decode func(*record) error) ([]error, error) {

	csvReader := csv.NewReader(reader)
	csvReader.Comma = p.comma
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: arquivo vazio, cabeçalho ausente", domain.ErrParse, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: cabeçalho inválido: %v", domain.ErrParse, name, err)
	}

	index, err := indexHeader(header, required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var skipped []error
	log := logger.WithContext(ctx)

	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}

		var rowErr error
		var line int
		if err != nil {
			var csvErr *csv.ParseError
			if !errors.As(err, &csvErr) {
				return nil, fmt.Errorf("%w: %s: erro de leitura: %v", domain.ErrParse, name, err)
			}
			line = csvErr.StartLine
			rowErr = &domain.RowError{File: name, Line: line, Err: fmt.Errorf("%w: %v", domain.ErrParse, csvErr.Err)}
		} else {
			line, _ = csvReader.FieldPos(0)
			rowErr = decode(&record{file: name, line: line, fields: fields, index: index, comma: p.comma})
		}

		if rowErr == nil {
			continue
		}
		if !p.skipInvalid {
			return nil, rowErr
		}

		log.Warn("linha ignorada", zap.String("file", name), zap.Int("line", line), zap.Error(rowErr))
		skipped = append(skipped, rowErr)
	}

	return skipped, nil
}

func indexHeader(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeColumn(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := index[normalizeColumn(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: colunas obrigatórias ausentes: %s", domain.ErrParse, strings.Join(missing, ", "))
	}

	return index, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

type record struct {
	file   string
	line   int
	fields []string
	index  map[string]int
	comma  rune
}

func (r *record) value(column string) (string, error) {
	i := r.index[normalizeColumn(column)]
	if i >= len(r.fields) {
		return "", r.fail(column, "", domain.ErrParse, "campo ausente")
	}

	v := strings.TrimSpace(r.fields[i])
	if v == "" {
		return "", r.fail(column, v, domain.ErrParse, "valor vazio")
	}
	return v, nil
}

func (r *record) date(column string) (time.Time, error) {
	v, err := r.value(column)
	if err != nil {
		return time.Time{}, err
	}

	t, err := ParseDate(v)
	if err != nil {
		return time.Time{}, r.fail(column, v, domain.ErrParse, "data inválida")
	}
	return t, nil
}

// ParseDate interpreta v em um dos formatos aceitos e devolve o dia
// correspondente à meia-noite UTC.
func ParseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: data inválida %q", domain.ErrParse, v)
}

func (r *record) decimal(column string) (decimal.Decimal, error) {
	v, err := r.value(column)
	if err != nil {
		return decimal.Zero, err
	}

	// Com separador diferente de vírgula, aceita vírgula decimal.
	if r.comma != ',' {
		v = strings.Replace(v, ",", ".", -1)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, r.fail(column, v, domain.ErrParse, "número inválido")
	}
	return d, nil
}

func (r *record) fail(column, value string, kind error, msg string) error {
	return &domain.RowError{
		File:   r.file,
		Line:   r.line,
		Column: column,
		Value:  value,
		Err:    fmt.Errorf("%w: %s", kind, msg),
	}
}
