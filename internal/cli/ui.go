package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// =============================================================================
// Palette
// =============================================================================

// The accent runs from the blue to the red wing of a line profile; status
// colors are kept apart from it so that warnings stand out in tables.
var (
	colorAccent = lipgloss.Color("38")  // blue wing
	colorOK     = lipgloss.Color("71")  // green
	colorWarn   = lipgloss.Color("214") // orange
	colorFail   = lipgloss.Color("160") // red wing
	colorText   = lipgloss.Color("252")
	colorMuted  = lipgloss.Color("246")
	colorFaint  = lipgloss.Color("239")
)

var (
	// StyleTitle labels progress bars and sections.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	// StyleDim is for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorFaint)

	// StyleNumber highlights computed values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorAccent)

	// StyleWarning marks diagnostics and occulted values.
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(14)
	styleCell        = lipgloss.NewStyle().Padding(0, 1)
)

// markers precede status lines.
var (
	markOK   = lipgloss.NewStyle().Foreground(colorOK).Render("✓")
	markFail = lipgloss.NewStyle().Foreground(colorFail).Render("✗")
	markWarn = lipgloss.NewStyle().Foreground(colorWarn).Render("!")
	markInfo = lipgloss.NewStyle().Foreground(colorMuted).Render("›")
)

// occultedCell is how grids show τ behind the star.
const occultedCell = "occ"

// =============================================================================
// Status lines
// =============================================================================

func status(mark, format string, args ...any) {
	fmt.Println(mark + " " + fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { status(markOK, format, args...) }
func printError(format string, args ...any)   { status(markFail, format, args...) }
func printInfo(format string, args ...any)    { status(markInfo, format, args...) }

func printWarning(format string, args ...any) {
	status(markWarn, "%s", StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written file.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + lipgloss.NewStyle().Foreground(colorText).Render(path))
}

// printKeyValue prints one labelled result. value may already be styled.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + value)
}

// printStats prints the run summary as one dim line ending in "cached" or
// "computed".
func printStats(cached bool, parts ...string) {
	origin := lipgloss.NewStyle().Foreground(colorMuted).Render("computed")
	if cached {
		origin = lipgloss.NewStyle().Foreground(colorOK).Render("cached")
	}
	sep := StyleDim.Render(" · ")
	styled := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		styled = append(styled, StyleDim.Render(p))
	}
	fmt.Println("  " + strings.Join(append(styled, origin), sep))
}

// printWarnings prints the first three diagnostics and a count of the rest.
func printWarnings(msgs []string) {
	const shown = 3
	for i, m := range msgs {
		if i == shown {
			printDetail("... and %d more", len(msgs)-shown)
			return
		}
		printWarning("%s", m)
	}
}

// =============================================================================
// Tables
// =============================================================================

// renderTable draws rows under headers. The first column is the row label
// and occulted cells are highlighted.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleCell.Foreground(colorMuted).Bold(true)
			case col == 0:
				return styleCell.Foreground(colorMuted)
			case row < len(rows) && col < len(rows[row]) && rows[row][col] == occultedCell:
				return styleCell.Foreground(colorWarn)
			}
			return styleCell
		}).
		Render()
}

// formatFloat formats v with six significant digits.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
