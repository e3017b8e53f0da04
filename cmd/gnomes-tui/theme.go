package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual styling for the board and status lines.
type Theme struct {
	LightSquare lipgloss.Color
	DarkSquare  lipgloss.Color
	WhitePiece  lipgloss.Color
	BlackPiece  lipgloss.Color
	Primary     lipgloss.Color
	Error       lipgloss.Color
	Muted       lipgloss.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		LightSquare: lipgloss.Color("180"), // Tan
		DarkSquare:  lipgloss.Color("94"),  // Brown
		WhitePiece:  lipgloss.Color("231"), // White
		BlackPiece:  lipgloss.Color("16"),  // Black
		Primary:     lipgloss.Color("12"),  // Blue
		Error:       lipgloss.Color("9"),   // Red
		Muted:       lipgloss.Color("240"), // Gray
	}
}
