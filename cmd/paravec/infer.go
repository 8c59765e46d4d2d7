package main

import (
	"strings"

	"github.com/spf13/cobra"

	"paravec/internal/embeddings"
)

func newInferCmd(opts *options) *cobra.Command {
	var (
		tokens     []string
		lr, minLR  float64
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "infer [text...]",
		Short: "Infer a document vector",
		Long: `Infer a document vector for the given text, or for an explicit token
list with --tokens. Unknown tokens are skipped.

Example:
  paravec infer "the cat chased the dog"
  paravec infer --tokens cat,dog --iterations 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			p := model.DefaultParams()
			if cmd.Flags().Changed("learning-rate") {
				p.LearningRate = lr
			}
			if cmd.Flags().Changed("min-learning-rate") {
				p.MinLearningRate = minLR
			}
			if cmd.Flags().Changed("iterations") {
				p.Iterations = iterations
			}

			var vec embeddings.Vector
			if len(tokens) > 0 {
				vec, err = model.InferVector(cmd.Context(), tokens, p)
			} else {
				vec, err = model.InferText(cmd.Context(), strings.Join(args, " "), p)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"vector":     vec,
				"dimensions": len(vec),
			})
		},
	}
	cmd.Flags().StringSliceVar(&tokens, "tokens", nil, "comma separated tokens instead of text")
	cmd.Flags().Float64Var(&lr, "learning-rate", 0, "initial learning rate (default from manifest)")
	cmd.Flags().Float64Var(&minLR, "min-learning-rate", 0, "minimum learning rate (default from manifest)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "passes over the document (default epochs*iterations from manifest)")
	return cmd
}
