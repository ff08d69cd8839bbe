package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/ui"
)

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List the compositor's outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := ev.ProbeOutputs(display)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeOutputsJSON(cmd.OutOrStdout(), infos)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatOutputs(infos))
		return nil
	},
}

func writeOutputsJSON(w io.Writer, infos []ev.OutputInfo) error {
	if infos == nil {
		infos = []ev.OutputInfo{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}

func formatOutputs(infos []ev.OutputInfo) string {
	var b strings.Builder
	b.WriteString(ui.FormatAppHeader("OUTPUTS", fmt.Sprintf("%d found", len(infos))))
	b.WriteString("\n\n")
	if len(infos) == 0 {
		b.WriteString(ui.FormatWarning("No outputs advertised"))
		return b.String()
	}

	rows := make([][]string, 0, len(infos))
	for _, o := range infos {
		logical := "-"
		if o.HasLogical {
			logical = fmt.Sprintf("%dx%d+%d+%d",
				o.Logical.LogicalSize[0], o.Logical.LogicalSize[1],
				o.Logical.LogicalPosition[0], o.Logical.LogicalPosition[1])
		}
		refresh := "-"
		if o.Refresh > 0 {
			refresh = fmt.Sprintf("%.2f Hz", float64(o.Refresh)/1000)
		}
		rows = append(rows, []string{
			o.Name,
			fmt.Sprintf("%dx%d", o.Width, o.Height),
			fmt.Sprintf("%d,%d", o.X, o.Y),
			logical,
			fmt.Sprint(o.Scale),
			refresh,
			strings.TrimSpace(o.Make + " " + o.Model),
		})
	}
	b.WriteString(ui.Table([]string{"NAME", "MODE", "POSITION", "LOGICAL", "SCALE", "REFRESH", "MODEL"}, rows))
	return b.String()
}

func init() {
	outputsCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(outputsCmd)
}
