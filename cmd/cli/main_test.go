package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/stock-series/internal/domain"
	"github.com/jeovahfialho/stock-series/internal/storage/jsonfile"
)

func writeInputs(t *testing.T, instrument string) (dir, instrumentPath, indexPath string) {
	t.Helper()

	dir = t.TempDir()
	instrumentPath = filepath.Join(dir, "MSFT_10y.csv")
	indexPath = filepath.Join(dir, "SP500_10y.csv")
	require.NoError(t, os.WriteFile(instrumentPath, []byte(instrument), 0644))
	require.NoError(t, os.WriteFile(indexPath, []byte("date,close\n2024-01-02,4700.125\n"), 0644))
	return dir, instrumentPath, indexPath
}

func TestRootCmd_Build(t *testing.T) {
	dir, instrument, index := writeInputs(t, "date,open,high,low,close,volume\n2024-01-02,370.875,371.2,369.0,370.5,1234567\n")
	output := filepath.Join(dir, "out.json")
	metricsFile := filepath.Join(dir, "stock_series.prom")

	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--instrument", instrument,
		"--index", index,
		"--output", output,
		"--rounding", "half_away",
		"--metrics-file", metricsFile,
	})
	require.NoError(t, cmd.Execute())

	doc, err := jsonfile.ReadDocument(output)
	require.NoError(t, err)
	require.Len(t, doc.TimeSeries, 1)
	assert.Equal(t, 370.88, doc.TimeSeries[0].Open)
	assert.Equal(t, 4700.13, doc.SP500Series[0].Value)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "stock_series_rows_loaded_total")
}

func TestRootCmd_SubcommandsFromEnv(t *testing.T) {
	dir, instrument, index := writeInputs(t, "date,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n")
	output := filepath.Join(dir, "doc.json")
	series := filepath.Join(dir, "series.json")

	t.Setenv("INSTRUMENT_FILE", instrument)
	t.Setenv("INDEX_FILE", index)
	t.Setenv("OUTPUT_FILE", output)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"build"})
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"series", "--input", output, "--output", series, "--field", "high"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(series)
	assert.NoError(t, err)
}

func TestRootCmd_MissingVolumeFails(t *testing.T) {
	dir, instrument, index := writeInputs(t, "date,open,high,low,close\n2024-01-02,1,2,0.5,1.5\n")
	output := filepath.Join(dir, "out.json")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--instrument", instrument, "--index", index, "--output", output})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRootCmd_InvalidRounding(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--rounding", "half_up"})
	assert.Error(t, cmd.Execute())
}

func TestRootCmd_CompletionNotice(t *testing.T) {
	dir, instrument, index := writeInputs(t, "date,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n")
	output := filepath.Join(dir, "out.json")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--instrument", instrument, "--index", index, "--output", output})
	require.NoError(t, cmd.Execute())

	// Apenas a linha de conclusão; os logs vão para stderr.
	assert.Equal(t, fmt.Sprintf("✅ Salvo %s (1 candles, 1 pontos do índice)\n", output), stdout.String())
}

func TestRootCmd_CompletionNoticeGrouping(t *testing.T) {
	dir, instrument, _ := writeInputs(t, "date,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n")

	var sb strings.Builder
	sb.WriteString("date,close\n")
	day := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 1234; i++ {
		fmt.Fprintf(&sb, "%s,%d.5\n", day.AddDate(0, 0, i).Format("2006-01-02"), 4000+i)
	}
	index := filepath.Join(dir, "big_index.csv")
	require.NoError(t, os.WriteFile(index, []byte(sb.String()), 0644))
	output := filepath.Join(dir, "out.json")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"build", "--instrument", instrument, "--index", index, "--output", output})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, fmt.Sprintf("✅ Salvo %s (1 candles, 1.234 pontos do índice)\n", output), stdout.String())
}

func TestRootCmd_FailureWritesNothingToStdout(t *testing.T) {
	dir, instrument, _ := writeInputs(t, "date,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--instrument", instrument,
		"--index", filepath.Join(dir, "missing.csv"),
		"--output", filepath.Join(dir, "out.json"),
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInputNotFound))
	assert.Empty(t, stdout.String())
}

func TestRootCmd_SeriesNotice(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "candles.json")
	output := filepath.Join(dir, "series.json")
	require.NoError(t, os.WriteFile(input, []byte(`[{"date":"2024-01-03","close":2.5},{"date":"2024-01-02","close":1.5}]`), 0644))

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"series", "-i", input, "-o", output})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, fmt.Sprintf("✅ Salvo %s (2 pontos)\n", output), stdout.String())
}
