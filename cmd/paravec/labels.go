package main

import (
	"strings"

	"github.com/spf13/cobra"

	"paravec/internal/labels"
)

func newLabelsCmd(opts *options, defaultTopN int) *cobra.Command {
	var (
		tokens []string
		topN   int
	)
	cmd := &cobra.Command{
		Use:   "labels [text...]",
		Short: "Rank the model's labels for a document",
		Long: `Infer a vector for the document and print the closest labels with their
cosine similarity. Text with no vocabulary overlap prints an empty list.

Example:
  paravec labels --top 3 "the cat chased the dog"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			var ranked []labels.Similarity
			if len(tokens) > 0 {
				ranked, err = model.NearestLabelsScoredForTokens(cmd.Context(), tokens, topN)
			} else {
				ranked, err = model.NearestLabelsScoredForText(cmd.Context(), strings.Join(args, " "), topN)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ranked)
		},
	}
	cmd.Flags().StringSliceVar(&tokens, "tokens", nil, "comma separated tokens instead of text")
	cmd.Flags().IntVarP(&topN, "top", "n", defaultTopN, "number of labels to return")
	return cmd
}

func newSimilarityCmd(opts *options) *cobra.Command {
	var (
		label string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "similarity <token>...",
		Short: "Score tokens against labels using their mean word vector",
		Long: `Average the word vectors of the given tokens and compare the mean with
one label (--label) or with every label (--limit best first). No inference is run.

Example:
  paravec similarity --label animal cat dog
  paravec similarity --limit 3 cat dog`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			if label != "" {
				sim, err := model.SimilarityToLabel(args, label)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"label": label, "similarity": sim})
			}
			ranked, err := model.PredictSeveral(args, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ranked)
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "compare against this label only")
	cmd.Flags().IntVar(&limit, "limit", 1, "number of labels when --label is not set")
	return cmd
}
