// Package ui is the storefront terminal interface: a shell with a header and
// route table, and one screen per route.
package ui

import (
	"os"
	"strconv"
	"strings"

	"storefront/internal/types"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#ffffff")
	LightForeground = lipgloss.Color("#1a202c")
	LightPrimary    = lipgloss.Color("#2b6cb0") // blue.600
	LightMuted      = lipgloss.Color("#718096") // gray.500
	LightBorder     = lipgloss.Color("#e2e8f0")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#1a202c")
	DarkForeground = lipgloss.Color("#f7fafc")
	DarkPrimary    = lipgloss.Color("#63b3ed") // blue.300
	DarkMuted      = lipgloss.Color("#a0aec0")
	DarkBorder     = lipgloss.Color("#4a5568")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53e3e")
	Success     = lipgloss.Color("#38a169")
	Warning     = lipgloss.Color("#d69e2e")
	Info        = lipgloss.Color("#3182ce")

	// Order status badge colors
	StatusYellow = lipgloss.Color("#d69e2e")
	StatusBlue   = lipgloss.Color("#3182ce")
	StatusPurple = lipgloss.Color("#805ad5")
	StatusGreen  = lipgloss.Color("#38a169")
	StatusGray   = lipgloss.Color("#718096")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks dark mode from COLORFGBG or STOREFRONT_DARK_MODE=1,
// light otherwise.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		// "foreground;background"; 0-6 and 8 are dark backgrounds
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
				return DarkTheme()
			}
		}
	}
	if os.Getenv("STOREFRONT_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeFor resolves the ui.theme setting.
func ThemeFor(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header   lipgloss.Style
	Brand    lipgloss.Style
	NavLink  lipgloss.Style
	Footer   lipgloss.Style
	Content  lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style

	// Text
	Title lipgloss.Style
	Body  lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style
	Price lipgloss.Style
	Label lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Badge    lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style
	Toast    lipgloss.Style
	Divider  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(theme.Border),

		Brand: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		NavLink: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true).
			MarginBottom(1),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Bold(true),

		Price: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Bold(true).
			Width(10),

		Success: lipgloss.NewStyle().Foreground(Success),
		Error:   lipgloss.NewStyle().Foreground(Destructive),
		Warning: lipgloss.NewStyle().Foreground(Warning),
		Info:    lipgloss.NewStyle().Foreground(Info),

		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Button: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(theme.Primary).
			Padding(0, 2),

		Disabled: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Toast: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// StatusColorName maps an order status to its badge color name. Unknown
// statuses get the neutral gray.
func StatusColorName(s types.OrderStatus) string {
	switch s {
	case types.StatusPending:
		return "yellow"
	case types.StatusProcessing:
		return "blue"
	case types.StatusShipped:
		return "purple"
	case types.StatusDelivered:
		return "green"
	default:
		return "gray"
	}
}

// StatusColor maps an order status to its badge color.
func StatusColor(s types.OrderStatus) lipgloss.Color {
	switch StatusColorName(s) {
	case "yellow":
		return StatusYellow
	case "blue":
		return StatusBlue
	case "purple":
		return StatusPurple
	case "green":
		return StatusGreen
	default:
		return StatusGray
	}
}

// StatusBadge renders the status verbatim on its color.
func (s Styles) StatusBadge(status types.OrderStatus) string {
	label := string(status)
	if label == "" {
		label = "unknown"
	}
	return s.Badge.Background(StatusColor(status)).Render(label)
}

// StockBadge renders "In Stock" or "Out of Stock".
func (s Styles) StockBadge(p types.Product) string {
	if p.InStock() {
		return s.Badge.Background(Success).Render("In Stock")
	}
	return s.Badge.Background(Destructive).Render("Out of Stock")
}
