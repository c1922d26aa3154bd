// Package scoreboard renders final match standings for the terminal.
package scoreboard

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true).
			Padding(0, 1)

	WinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true).
			Padding(0, 1)

	RowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	GoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// Row is one player's final line
type Row struct {
	Player    byte
	Name      string
	Score     int
	Connected bool
}

// Sort orders rows best first: lowest score, then lowest player id
func Sort(rows []Row) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})
	return out
}

// Winners returns every row sharing the lowest score
func Winners(rows []Row) []Row {
	sorted := Sort(rows)
	var out []Row
	for _, r := range sorted {
		if r.Score != sorted[0].Score {
			break
		}
		out = append(out, r)
	}
	return out
}

// Render draws the standings under a title, winners highlighted and players
// who left greyed out
func Render(title string, rows []Row) string {
	sorted := Sort(rows)
	best := 0
	if len(sorted) > 0 {
		best = sorted[0].Score
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "PLAYER", "ID", "SCORE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case !sorted[row].Connected:
				return GoneStyle
			case sorted[row].Score == best:
				return WinnerStyle
			default:
				return RowStyle
			}
		})

	for i, r := range sorted {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("player %d", r.Player)
		}
		if !r.Connected {
			name += " (left)"
		}
		t.Row(strconv.Itoa(i+1), name, strconv.Itoa(int(r.Player)), strconv.Itoa(r.Score))
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(t.Render())
	return b.String()
}
