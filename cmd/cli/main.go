package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jeovahfialho/stock-series/internal/config"
	"github.com/jeovahfialho/stock-series/internal/ingestion"
	"github.com/jeovahfialho/stock-series/internal/service"
	"github.com/jeovahfialho/stock-series/pkg/logger"
	"github.com/jeovahfialho/stock-series/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("execução interrompida", zap.Error(err))
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "stock-series",
		Short: "Gera o documento de séries do ativo e do índice",
		Long: `Lê a tabela diária OHLCV do ativo e a tabela de fechamentos do índice,
ordena por data, arredonda para 2 casas e grava um único JSON com
"time_series" e "sp500_series".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd)
		},
	}

	rootCmd.PersistentFlags().String("rounding", "", "Arredondamento: half_even ou half_away")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indenta o JSON de saída")
	rootCmd.PersistentFlags().String("metrics-file", "", "Grava métricas Prometheus neste arquivo")

	addBuildFlags(rootCmd)

	// Comando build
	var buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Gera o documento combinado (padrão)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd)
		},
	}
	addBuildFlags(buildCmd)

	// Comando series
	var seriesCmd = &cobra.Command{
		Use:   "series",
		Short: "Deriva uma série {date, value} de um JSON de candles",
		Long: `Lê um array JSON de candles (ou um documento com "time_series") e grava
um array {date, value} usando o campo escolhido como valor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd)
		},
	}
	seriesCmd.Flags().StringP("input", "i", "stock_and_sp500.json", "JSON de entrada")
	seriesCmd.Flags().StringP("output", "o", "secondary_series.json", "JSON de saída")
	seriesCmd.Flags().StringP("field", "f", "close", "Campo usado como valor (open, high, low, close)")

	rootCmd.AddCommand(buildCmd, seriesCmd)

	return rootCmd
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("instrument", "", "CSV do ativo (date, open, high, low, close, volume)")
	cmd.Flags().String("index", "", "CSV do índice (date, close)")
	cmd.Flags().StringP("output", "o", "", "Arquivo JSON de saída")
	cmd.Flags().StringP("delimiter", "d", "", "Separador do CSV")
	cmd.Flags().Bool("skip-invalid", false, "Ignora linhas inválidas com aviso em vez de abortar")
}

// setup carrega a configuração do ambiente, aplica as flags informadas e
// inicializa o logger.
func setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		return nil, nil, fmt.Errorf("erro ao inicializar logger: %w", err)
	}

	ctx := logger.ContextWithRunID(context.Background(), uuid.NewString())
	return ctx, cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("instrument") {
		cfg.InstrumentFile, _ = flags.GetString("instrument")
	}
	if flags.Changed("index") {
		cfg.IndexFile, _ = flags.GetString("index")
	}
	if flags.Changed("delimiter") {
		cfg.CSVDelimiter, _ = flags.GetString("delimiter")
	}
	if flags.Changed("skip-invalid") {
		cfg.SkipInvalidRows, _ = flags.GetBool("skip-invalid")
	}
	if flags.Changed("rounding") {
		cfg.RoundingMode, _ = flags.GetString("rounding")
	}
	if flags.Changed("pretty") {
		cfg.OutputPretty, _ = flags.GetBool("pretty")
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile, _ = flags.GetString("metrics-file")
	}
}

func runBuild(cmd *cobra.Command) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()
	defer flushMetrics(cfg.MetricsFile)

	if cmd.Flags().Changed("output") {
		cfg.OutputFile, _ = cmd.Flags().GetString("output")
	}

	comma, _ := cfg.Delimiter()
	round, err := service.NewRounder(cfg.RoundingMode)
	if err != nil {
		return err
	}

	parser := ingestion.NewParser(comma, cfg.SkipInvalidRows)
	ingestionService := service.NewIngestionService(parser, service.BuildOptions{
		InstrumentFile: cfg.InstrumentFile,
		IndexFile:      cfg.IndexFile,
		OutputFile:     cfg.OutputFile,
		Pretty:         cfg.OutputPretty,
		SkipInvalid:    cfg.SkipInvalidRows,
		Round:          round,
	})

	logger.WithContext(ctx).Info("iniciando build",
		zap.String("instrument", cfg.InstrumentFile),
		zap.String("index", cfg.IndexFile),
		zap.String("rounding", cfg.RoundingMode))

	result, err := ingestionService.Run(ctx)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.BrazilianPortuguese)
	p.Fprintf(cmd.OutOrStdout(), "✅ Salvo %s (%d candles, %d pontos do índice)\n",
		result.OutputFile, result.Candles, result.IndexPoints)

	return nil
}

func runSeries(cmd *cobra.Command) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()
	defer flushMetrics(cfg.MetricsFile)

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	field, _ := cmd.Flags().GetString("field")

	round, err := service.NewRounder(cfg.RoundingMode)
	if err != nil {
		return err
	}

	count, err := service.BuildSeries(ctx, service.SeriesOptions{
		InputFile:  input,
		OutputFile: output,
		Field:      field,
		Pretty:     cfg.OutputPretty,
		Round:      round,
	})
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.BrazilianPortuguese)
	p.Fprintf(cmd.OutOrStdout(), "✅ Salvo %s (%d pontos)\n", output, count)

	return nil
}

func flushMetrics(path string) {
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn("erro ao gravar métricas", zap.String("file", path), zap.Error(err))
	}
}
