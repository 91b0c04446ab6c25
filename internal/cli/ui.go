package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pixelsort/pkg/pipeline"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// Palette (ANSI 256).
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by commands and the preset picker.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleLabel       = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

// status icons with their styles.
var (
	iconSuccess = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	iconError   = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	iconWarning = lipgloss.NewStyle().Foreground(colorYellow).Render("!")
	iconInfo    = lipgloss.NewStyle().Foreground(colorGray).Render("›")
)

// uiOut receives all human-oriented output. Commands that stream image
// data to stdout print nothing here.
var uiOut io.Writer = os.Stdout

func status(icon, format string, args ...any) {
	fmt.Fprintln(uiOut, icon+" "+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { status(iconSuccess, format, args...) }

func printError(format string, args ...any) { status(iconError, format, args...) }

func printWarning(format string, args ...any) {
	status(iconWarning, "%s", StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) { status(iconInfo, format, args...) }

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path a result was written to.
func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(uiOut, styleLabel.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a command to run next.
func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// printStats summarizes a sort on one line:
//
//	640x480 · png · rows · 812/1033 spans · 201344 px · 38ms · brightness/threshold · fresh
func printStats(res *pipeline.Result, p pixelsort.Params) {
	fmt.Fprintln(uiOut, "  "+statsLine(res, p))
}

func statsLine(res *pipeline.Result, p pixelsort.Params) string {
	parts := []string{fmt.Sprintf("%dx%d", res.Width, res.Height), res.Format}
	if !res.CacheInfo.Hit {
		st := res.Stats.Sort
		parts = append(parts,
			st.Axis.String(),
			fmt.Sprintf("%d/%d spans", st.Sorted, st.Spans),
			fmt.Sprintf("%d px", st.Pixels),
			res.Stats.SortTime.Round(time.Millisecond).String(),
		)
	}
	parts = append(parts, p.SortKey.String()+"/"+p.IntervalMode.String())

	for i, part := range parts {
		parts[i] = StyleDim.Render(part)
	}
	origin := lipgloss.NewStyle().Foreground(colorGray).Render("fresh")
	if res.CacheInfo.Hit {
		origin = StyleSuccess.Render("cached")
	}
	sep := StyleDim.Render(" · ")
	return strings.Join(parts, sep) + sep + origin
}
