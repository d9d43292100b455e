package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ironsheep/image-transform-cli/internal/pipeline"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#88C0D0"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C")).Bold(true)
)

type summaryRow struct {
	Label string
	Value string
}

func summaryRows(md *pipeline.Metadata, metadataPath string) []summaryRow {
	rows := []summaryRow{
		{Label: "Input", Value: md.Input},
		{Label: "Output", Value: md.Output},
		{Label: "Transform", Value: fmt.Sprintf("%s (%s)", md.Type, md.Type.Description())},
		{Label: "Original size", Value: fmt.Sprintf("%dx%d", md.OriginalSize.Width, md.OriginalSize.Height)},
		{Label: "Processing time", Value: fmt.Sprintf("%.2fs", md.ProcessingTimeSeconds)},
	}
	if md.Width != nil && md.Height != nil {
		rows = append(rows, summaryRow{Label: "Heightmap size", Value: fmt.Sprintf("%dx%d", *md.Width, *md.Height)})
	}
	if md.HeightmapDataFile != "" {
		rows = append(rows, summaryRow{Label: "Heightmap data", Value: md.HeightmapDataFile})
	}
	if metadataPath != "" {
		rows = append(rows, summaryRow{Label: "Metadata", Value: metadataPath})
	}
	return rows
}

func renderSummary(rows []summaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
