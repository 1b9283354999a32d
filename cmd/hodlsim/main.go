package main

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hodlsim/hodlsim/internal/backtesting"
	"github.com/hodlsim/hodlsim/internal/feed"
	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/logger"
	"github.com/hodlsim/hodlsim/pkg/logger/zerolog"
	"github.com/hodlsim/hodlsim/pkg/strategy"
	"github.com/hodlsim/hodlsim/pkg/strategy/rule"
)

const dateLayout = "2006-01-02"

// Command line flags
var (
	csvFile          string
	timeframe        string
	startDate        string
	endDate          string
	amount           float64
	fundingAmount    float64
	fundingFrequency string
	strategyIDs      []string
	rulesFile        string
	logLevel         string
	parallelism      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "hodlsim",
		Short:   "Compare crypto accumulation strategies over historical data",
		Version: "1.0.0",
	}

	rootCmd.AddCommand(buildCompareCmd())
	rootCmd.AddCommand(buildStrategiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCompareCmd() *cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Backtest strategies over a CSV candle file",
		RunE:  runCompare,
	}

	compareCmd.Flags().StringVarP(&csvFile, "csv", "c", "", "Candle CSV file (e.g. ./btc.csv)")
	compareCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1d", "Candle timeframe (e.g. 1d)")
	compareCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2021-12-01)")
	compareCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2022-12-31)")
	compareCmd.Flags().Float64VarP(&amount, "amount", "a", 10000, "Initial investment in USDC")
	compareCmd.Flags().Float64Var(&fundingAmount, "funding-amount", 0, "Recurring deposit amount in USDC")
	compareCmd.Flags().StringVar(&fundingFrequency, "funding-frequency", "weekly", "Deposit cadence (daily, weekly, monthly)")
	compareCmd.Flags().StringSliceVar(&strategyIDs, "strategies", nil, "Strategy ids to run (default all)")
	compareCmd.Flags().StringVarP(&rulesFile, "rules", "r", "", "YAML rule config for the custom strategy")
	compareCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	compareCmd.Flags().IntVar(&parallelism, "parallelism", 4, "Concurrent strategy evaluations")

	compareCmd.MarkFlagRequired("csv")

	return compareCmd
}

func buildStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available strategies",
		Run: func(cmd *cobra.Command, args []string) {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name"})
			for _, descriptor := range backtesting.DefaultRegistry().Descriptors() {
				table.Append([]string{descriptor.ID, descriptor.Name})
			}
			table.Render()
		},
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	log, err := zerolog.New(logLevel, true)
	if err != nil {
		return err
	}

	candles, err := loadCandles(log)
	if err != nil {
		return err
	}

	req := backtesting.Request{
		Candles:          candles,
		InvestmentAmount: amount,
		StrategyIDs:      strategyIDs,
		Parameters:       map[string]strategy.Parameters{},
	}

	if fundingAmount > 0 {
		req.Funding = core.FundingSchedule{
			Frequency: core.FundingFrequency(fundingFrequency),
			Amount:    fundingAmount,
		}
	}

	registry := backtesting.DefaultRegistry()
	if rulesFile != "" {
		cfg, err := loadRules(rulesFile)
		if err != nil {
			return err
		}
		registry.Register(rule.NewWithConfig(*cfg))
	} else if len(req.StrategyIDs) == 0 {
		// Without a rule config the custom strategy has nothing to run.
		for _, descriptor := range registry.Descriptors() {
			if descriptor.ID != rule.New().ID() {
				req.StrategyIDs = append(req.StrategyIDs, descriptor.ID)
			}
		}
	}

	bar := progressbar.Default(int64(countStrategies(registry, req)), "backtesting")
	runner := backtesting.NewRunner(registry, log,
		backtesting.WithParallelism(parallelism),
		backtesting.WithProgress(func(completed, total int, id string) {
			bar.Add(1)
		}),
	)

	result, err := runner.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	bar.Finish()

	printComparison(result)
	return nil
}

func loadCandles(log logger.Logger) ([]core.Candle, error) {
	csvFeed, err := feed.NewCSVFeed(csvFile, timeframe)
	if err != nil {
		return nil, err
	}

	start, end, err := parseDateRange()
	if err != nil {
		return nil, err
	}
	candles := csvFeed.CandlesByPeriod(start, end)

	log.WithFields(map[string]any{
		"file":    csvFile,
		"candles": len(candles),
	}).Info("candle data loaded")

	return candles, nil
}

func parseDateRange() (start, end time.Time, err error) {
	if startDate != "" {
		if start, err = time.Parse(dateLayout, startDate); err != nil {
			return start, end, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if endDate != "" {
		if end, err = time.Parse(dateLayout, endDate); err != nil {
			return start, end, fmt.Errorf("invalid end date: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end date is before start date")
	}
	return start, end, nil
}

func loadRules(path string) (*rule.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := rule.ParseYAML(data)
	if err != nil {
		return nil, err
	}
	if err := rule.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func countStrategies(registry *strategy.Registry, req backtesting.Request) int {
	if len(req.StrategyIDs) > 0 {
		return len(req.StrategyIDs)
	}
	return len(registry.Descriptors())
}

func printComparison(result *backtesting.ComparisonResult) {
	fmt.Printf("\nPeriod: %s to %s (%s candles)\n",
		result.Metadata.StartDate.Format(dateLayout),
		result.Metadata.EndDate.Format(dateLayout),
		result.Metadata.Timeframe,
	)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"Strategy", "Final Value", "Return %", "Avg Buy", "Max DD %", "Sharpe", "Txs",
	})

	for _, sr := range result.Results {
		if sr.Error != "" {
			table.Append([]string{sr.ID, "error: " + sr.Error, "", "", "", "", ""})
			continue
		}
		table.Append([]string{
			sr.Name,
			fmt.Sprintf("$%.2f", sr.Metrics.FinalValue),
			fmt.Sprintf("%.2f", sr.Metrics.TotalReturn),
			fmt.Sprintf("$%.2f", sr.Metrics.AvgBuyPrice),
			fmt.Sprintf("%.2f", sr.Metrics.MaxDrawdown),
			fmt.Sprintf("%.2f", sr.Metrics.SharpeRatio),
			fmt.Sprintf("%d", len(sr.Transactions)),
		})
	}
	table.Render()
}
