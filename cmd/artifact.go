package cmd

import (
	"encoding/json"
	"fmt"

	"fraudguard/ml"

	"github.com/spf13/cobra"
)

func newArtifactCommand() *cobra.Command {
	artifact := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect model artifacts",
	}

	var asJSON bool
	check := &cobra.Command{
		Use:   "check <path>",
		Short: "Load and validate an artifact without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ml.LoadArtifact(args[0])
			if err != nil {
				return err
			}
			info := a.Info()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "model:     %s\n", info.ModelType)
			fmt.Fprintf(out, "threshold: %v\n", info.Threshold)
			fmt.Fprintf(out, "features:  %d\n", len(info.Features))
			if info.Metadata.Version != "" {
				fmt.Fprintf(out, "version:   %s\n", info.Metadata.Version)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	check.Flags().BoolVar(&asJSON, "json", false, "print the artifact summary as JSON")

	artifact.AddCommand(check)
	return artifact
}
