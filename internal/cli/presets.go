package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// presetsCommand creates the presets command.
func (c *CLI) presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List parameter presets",
		Long: `List the built-in presets and those defined under [presets] in the
config file. Use a preset with 'pixelsort sort --preset <name>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(presetTable(cfg))
			if cfg.Path() != "" {
				printDetail("Config: %s", cfg.Path())
			}
			return nil
		},
	}
}

// presetTable renders every preset with its parameters.
func presetTable(cfg *config.Config) string {
	items := presetItems(cfg)
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, presetRow(it))
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Preset", "Dir", "Key", "Mode", "Lo", "Hi", "Rev", "Jitter", "Span", "Angle", "Falloff").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				if items[row].Builtin {
					return StyleHighlight
				}
				return StyleSuccess
			}
			return StyleValue
		}).
		Render()
}

func presetRow(it presetItem) []string {
	p := it.Params
	rev := ""
	if p.Reverse {
		rev = "✓"
	}
	return []string{
		it.Name,
		p.Direction.String(),
		p.SortKey.String(),
		p.IntervalMode.String(),
		strconv.Itoa(p.LowerThreshold),
		strconv.Itoa(p.UpperThreshold),
		rev,
		strconv.Itoa(p.Jitter),
		spanRange(p),
		strconv.Itoa(p.Angle) + "°",
		strconv.Itoa(p.Falloff) + "%",
	}
}

func spanRange(p pixelsort.Params) string {
	if p.SpanMax == 0 {
		return strconv.Itoa(p.SpanMin) + "+"
	}
	return fmt.Sprintf("%d-%d", p.SpanMin, p.SpanMax)
}
