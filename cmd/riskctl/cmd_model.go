package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
)

func newModelCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect and re-encode classifier artifacts",
	}

	cmd.AddCommand(newModelInspectCommand(root))
	cmd.AddCommand(newModelConvertCommand(root))

	return cmd
}

func newModelInspectCommand(root *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "inspect --model <artifact>",
		Short: "Print the state, classes and feature names of an artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := model.Load(path, root.log().Logger)
			info := m.Info()
			if err := writeJSON(cmd.OutOrStdout(), info); err != nil {
				return err
			}
			if m.State() != model.StateReady {
				return errors.New("model is not loadable: " + info.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "model", "m", "", "Path to the classifier artifact")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

// newModelConvertCommand re-encodes an artifact. The output extension picks
// the compression: .gz for gzip, .zst for zstd, anything else for plain JSON.
func newModelConvertCommand(root *rootOptions) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "convert --model <artifact> --out <artifact>",
		Short: "Validate an artifact and write it with another compression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := model.ReadArtifact(in)
			if err != nil {
				return err
			}
			if err := model.WriteArtifact(out, a); err != nil {
				return err
			}
			root.log().Info("Artifact converted", "from", in, "to", out, "version", a.Version)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&in, "model", "m", "", "Path to the source artifact")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path of the artifact to write")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
