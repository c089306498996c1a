package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/analysis"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
)

type scoreOptions struct {
	features  string
	baseline  string
	cognitive float64
	model     string
}

// scoreReport is the assessment plus its plain-language explanation
type scoreReport struct {
	analysis.Assessment
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
	ModelState      string   `json:"model_state"`
}

func newScoreCommand(root *rootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score --features <features.json>",
		Short: "Score one feature file and print the assessment",
		Long: `Score a single voice sample from a JSON feature file.

The baseline file uses the same shape as the feature file. Without --model the
score is heuristic-only and the assessment is marked degraded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.features, "features", "f", "", "Path to the feature JSON file")
	cmd.Flags().StringVarP(&opts.baseline, "baseline", "b", "", "Path to a baseline feature JSON file")
	cmd.Flags().Float64VarP(&opts.cognitive, "cognitive", "c", 0, "Cognitive risk score in [0,100]")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Path to the classifier artifact")
	_ = cmd.MarkFlagRequired("features")

	return cmd
}

func runScore(cmd *cobra.Command, root *rootOptions, opts *scoreOptions) error {
	in, err := readFeatures(opts.features)
	if err != nil {
		return err
	}
	features := in.Sanitize()

	req := analysis.Request{Features: features}

	if opts.baseline != "" {
		b, err := readFeatures(opts.baseline)
		if err != nil {
			return err
		}
		v := b.Sanitize()
		req.Baseline = &v
	}

	if cmd.Flags().Changed("cognitive") {
		c := opts.cognitive
		if math.IsNaN(c) || c < 0 || c > 100 {
			return fmt.Errorf("cognitive score %v outside [0,100]", c)
		}
		req.Cognitive = &c
	}

	logger := root.log()
	m := model.Load(opts.model, logger.Logger)

	assessment := analysis.NewEngine(m, logger.Logger).Assess(req)
	explanation, recommendations := analysis.Explain(assessment, features, nil)

	return writeJSON(cmd.OutOrStdout(), scoreReport{
		Assessment:      assessment,
		Explanation:     explanation,
		Recommendations: recommendations,
		ModelState:      m.State().String(),
	})
}
