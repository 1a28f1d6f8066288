package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"slidestat/internal/analytics"
	"slidestat/internal/model"
)

func newComputeCmd() *cobra.Command {
	var (
		req       model.Request
		precision int
		smoothing float64
	)

	cmd := &cobra.Command{
		Use:   "compute [values...]",
		Short: "Compute one series and print it as JSON",
		Long: `Compute one series over the given values. Values are read from the arguments,
or from stdin when none are given (whitespace or comma separated).

Examples:
  slidestat compute --func sma --period 3 34 30 29 34 38 25 35
  slidestat compute --func top --period 3 --top 2 < closes.txt
  slidestat compute --func smooth --smoothing 0.2 --precision 4 1 2 3
  slidestat compute --func min --period 2 -- -4 7 -1.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Values = values

			if cmd.Flags().Changed("precision") {
				req.Precision = &precision
			}
			if req.Func == "smooth" {
				req.Smoothing = &smoothing
			}

			res, err := analytics.NewAnalyzer(log.Logger).Run(req)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(res)
		},
	}

	cmd.Flags().StringVar(&req.Func, "func", "sma", "Series function (see 'serve' GET /functions)")
	cmd.Flags().IntVar(&req.Period, "period", 3, "Window size")
	cmd.Flags().IntVar(&req.Top, "top", 1, "Values kept per window for top/bottom")
	cmd.Flags().IntVar(&precision, "precision", 0, "When set, also emit values formatted to this many decimals")
	cmd.Flags().Float64Var(&smoothing, "smoothing", 0.5, "Smoothing factor for the smooth function")

	return cmd
}

func readValues(args []string, stdin io.Reader) ([]float64, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		args = strings.FieldsFunc(string(data), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
		})
	}

	values := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", arg, err)
		}
		values = append(values, v)
	}
	return values, nil
}
