package cli

import (
	"bytes"
	"fmt"

	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/tts"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var mergeLinesCmd = &cobra.Command{
	Use:   "merge-lines <files...>",
	Short: "Rewrite text files so each paragraph is a single line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			changed, err := mergeLinesFile(appFs, path)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "rewrote %s\n", path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeLinesCmd)
}

// mergeLinesFile rewrites path in place and reports whether it changed.
func mergeLinesFile(fs afero.Fs, path string) (bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return false, err
	}
	merged, err := ingest.MergeLines(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if merged == string(data) {
		return false, nil
	}
	return true, tts.WriteFileAtomic(fs, path, []byte(merged))
}
