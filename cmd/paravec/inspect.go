package main

import (
	"github.com/spf13/cobra"

	"paravec/internal/learning"
)

type inspectReport struct {
	Manifest     string   `json:"manifest"`
	Rows         int      `json:"rows"`
	Dimensions   int      `json:"dimensions"`
	Scoring      string   `json:"scoring"`
	Window       int      `json:"window"`
	Negative     int      `json:"negative,omitempty"`
	RefineMargin int      `json:"refine_margin"`
	Iterations   int      `json:"iterations"`
	Labels       []string `json:"labels"`
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the shape and settings of a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			engine, err := model.Engine()
			if err != nil {
				return err
			}
			ecfg := engine.Config()
			report := inspectReport{
				Manifest:     opts.modelPath,
				Rows:         model.Store().RowCount(),
				Dimensions:   model.Dimensionality(),
				Scoring:      string(ecfg.Scoring),
				Window:       ecfg.Window,
				RefineMargin: max(m.ModelConfig().RefineMargin, 0),
				Iterations:   model.DefaultParams().Iterations,
				Labels:       model.Labels(),
			}
			if ecfg.Scoring == learning.ScoringNegative {
				report.Negative = ecfg.Negative
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
