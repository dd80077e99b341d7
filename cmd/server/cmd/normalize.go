package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/bands"
)

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Group a parking result payload into walking-distance bands",
		Long: `Read a parking search payload (a result array, a {results: [...]} object or
an existing {bands: {...}} object) and print it grouped into distance bands.
Reads stdin when the file is "-" or omitted.

Examples:
  parkfinder normalize results.json
  curl -s "localhost:8080/api/v1/parking/nearby?q=Flinders+St" | parkfinder normalize`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if !json.Valid(raw) {
				return fmt.Errorf("input is not valid JSON")
			}
			return writeIndented(cmd.OutOrStdout(), bands.Normalize(raw))
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return raw, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
