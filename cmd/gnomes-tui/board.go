package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gnomes/pkg/rules"
)

var glyphs = map[byte]string{
	'K': "♚", 'Q': "♛", 'R': "♜", 'B': "♝", 'N': "♞", 'P': "♟",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
}

// renderBoard draws b rank 8 first, with rank and file labels. Both sides
// use filled glyphs and are told apart by color.
func renderBoard(b *rules.Board, th Theme) string {
	grid := b.Grid()
	label := lipgloss.NewStyle().Foreground(th.Muted)

	var rows []string
	for r := 0; r < 8; r++ {
		cells := []string{label.Render(string(rune('8' - r)))}
		for f := 0; f < 8; f++ {
			bg := th.LightSquare
			if (r+f)%2 == 1 {
				bg = th.DarkSquare
			}
			style := lipgloss.NewStyle().Background(bg).Width(3).Align(lipgloss.Center)
			c := grid[r][f]
			text := " "
			if g, ok := glyphs[c]; ok {
				text = g
				if c >= 'a' && c <= 'z' {
					style = style.Foreground(th.BlackPiece)
				} else {
					style = style.Foreground(th.WhitePiece)
				}
			}
			cells = append(cells, style.Render(text))
		}
		rows = append(rows, strings.Join(cells, ""))
	}

	files := " "
	for f := 0; f < 8; f++ {
		files += lipgloss.NewStyle().Width(3).Align(lipgloss.Center).Render(string(rune('a' + f)))
	}
	rows = append(rows, label.Render(files))
	return strings.Join(rows, "\n")
}

// statusLine describes the side to move and the game result, if any.
func statusLine(g *rules.Game) string {
	b := g.Board()
	switch {
	case b.IsCheckmate():
		winner := "white"
		if b.Turn() == "white" {
			winner = "black"
		}
		return "checkmate, " + winner + " wins"
	case b.IsGameOver():
		return "draw"
	default:
		return b.Turn() + " to move"
	}
}
