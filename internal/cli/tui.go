package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PresetListModel - Interactive preset selection
// =============================================================================

// presetItem is one row of the preset picker.
type presetItem struct {
	Name    string
	Builtin bool
	Params  pixelsort.Params
}

// PresetListModel is the bubbletea model for interactive preset selection.
type PresetListModel struct {
	Presets  []presetItem
	Cursor   int
	Selected *presetItem
	Height   int
	Offset   int
}

// NewPresetListModel creates a preset list model over every preset in cfg.
func NewPresetListModel(cfg *config.Config) PresetListModel {
	return PresetListModel{
		Presets: presetItems(cfg),
		Height:  15,
	}
}

func presetItems(cfg *config.Config) []presetItem {
	names := cfg.PresetNames()
	items := make([]presetItem, 0, len(names))
	for _, name := range names {
		p, _ := cfg.Preset(name)
		items = append(items, presetItem{Name: name, Builtin: cfg.IsBuiltin(name), Params: p})
	}
	return items
}

func (m PresetListModel) Init() tea.Cmd {
	return nil
}

func (m PresetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Presets)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Presets) == 0 {
				return m, tea.Quit
			}
			item := m.Presets[m.Cursor]
			m.Selected = &item
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m PresetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Preset"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Presets))
	for i := m.Offset; i < end; i++ {
		item := m.Presets[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		origin := "user"
		if item.Builtin {
			origin = "built-in"
		}
		line := fmt.Sprintf("%s%-12s %s", cursor, item.Name, listDimStyle.Render(origin))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.Presets) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("  " + m.Presets[m.Cursor].Params.String()))
		b.WriteString("\n")
	}
	return b.String()
}

// pickPreset runs the picker and returns the chosen preset name.
func pickPreset(cfg *config.Config) (string, error) {
	final, err := tea.NewProgram(NewPresetListModel(cfg)).Run()
	if err != nil {
		return "", fmt.Errorf("preset picker: %w", err)
	}
	m, ok := final.(PresetListModel)
	if !ok || m.Selected == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no preset selected")
	}
	return m.Selected.Name, nil
}
