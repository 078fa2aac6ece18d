package commands

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/polystore/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(reg *dialect.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "Show the dialect capability table",
		Long:  `Display the pagination, full-text and parameter binding strategy of every supported dialect.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "Aliases", "Pagination", "Full-text", "Placeholder", "Driver", "Max identifier"})
			for _, c := range reg.Capabilities() {
				t.AppendRow(table.Row{
					c.Name,
					strings.Join(c.Aliases, ", "),
					c.Pagination().String(),
					c.FullText.String(),
					c.Placeholder.String(),
					c.DriverName,
					strconv.Itoa(c.MaxIdentifierLength),
				})
			}
			t.Render()
			return nil
		},
	}
}
