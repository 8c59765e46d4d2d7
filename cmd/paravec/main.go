package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"paravec/internal/app"
	"paravec/internal/config"
	"paravec/internal/logger"
	"paravec/internal/modelio"
	"paravec/internal/paravec"
)

// options are the flags shared by every subcommand.
type options struct {
	modelPath string
	logLevel  string
	logFormat string
}

func main() {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "paravec",
		Short:        "Infer paragraph vectors and rank labels against a frozen model",
		SilenceUsage: true,
		Long: `paravec loads a model manifest (model.yaml) with its vocabulary, word
vectors and output weights, then infers document vectors for text and ranks
the model's labels by cosine similarity.

All commands print JSON to stdout; logs go to stderr.`,
	}
	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", cfg.ModelPath, "path to model.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "json or text")

	root.AddCommand(
		newInferCmd(opts),
		newLabelsCmd(opts, cfg.DefaultTopN),
		newSimilarityCmd(opts),
		newInspectCmd(opts),
	)
	return root
}

func (o *options) open(cmd *cobra.Command) (*paravec.Model, *modelio.Manifest, error) {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
	return modelio.Open(o.modelPath, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
