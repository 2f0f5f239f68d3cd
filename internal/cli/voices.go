package cli

import (
	"fmt"
	"io"

	"github.com/apresai/narrator/internal/tts"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices [provider]",
	Short: "List the voice aliases for each TTS provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs := []string{tts.KindAzure, "azure-news", tts.KindGoogle, tts.KindPolly}
		if len(args) == 1 {
			catalogs = args
		}
		for _, c := range catalogs {
			if err := printVoices(cmd.OutOrStdout(), c); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}

func printVoices(w io.Writer, catalog string) error {
	voices, err := tts.AvailableVoices(catalog)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, titleStyle.Render(catalog))
	for _, v := range voices {
		desc := fmt.Sprintf("%s (%s, %s)", v.ID, v.Gender, v.Description)
		if v.Style != "" {
			desc += " style " + v.Style
		}
		fmt.Fprintln(w, labelStyle.Render(v.Alias)+valueStyle.Render(desc))
	}
	fmt.Fprintln(w)
	return nil
}
