package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/go-while/go-widgets/internal/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	// descriptions are cut in table output
	maxTableDescription = 48
)

var (
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	headerStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("86"))
	priceStyle  = cellStyle.Foreground(lipgloss.Color("220"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// writeWidgets renders widgets in the requested format
func writeWidgets(w io.Writer, format string, widgets []models.Widget) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(widgets)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(widgets); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeTable(w, widgets)
	}
}

// writeWidget renders a single widget; tables show it as one row
func writeWidget(w io.Writer, format string, widget models.Widget) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(widget)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(widget); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeTable(w, []models.Widget{widget})
	}
}

func writeTable(w io.Writer, widgets []models.Widget) error {
	if len(widgets) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No widgets found."))
		return err
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderHeader(false).
		Headers("NAME", "PRICE", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return priceStyle
			default:
				return cellStyle
			}
		})
	for _, widget := range widgets {
		t.Row(widget.Name, "$"+widget.PriceString(), truncate(widget.Description, maxTableDescription))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func truncate(s string, limit int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-3]) + "..."
}

// suggestNames returns up to three names close to name, nearest first
func suggestNames(widgets []models.Widget, name string) []string {
	const maxDistance = 3
	key := models.NormalizeName(name)

	type candidate struct {
		name string
		dist int
	}
	var candidates []candidate
	for _, widget := range widgets {
		d := levenshtein.ComputeDistance(key, models.NormalizeName(widget.Name))
		if d <= maxDistance {
			candidates = append(candidates, candidate{widget.Name, d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	var out []string
	for i := 0; i < len(candidates) && i < 3; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}
