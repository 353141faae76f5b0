// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette shared by task listings, run summaries and error cards.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorPass      = lipgloss.Color("#10B981")
	colorFail      = lipgloss.Color("#EF4444")
	colorCaution   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")
	colorDetail    = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle renders section titles ("Tasks", "Repositories").
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// SubtitleStyle renders task groups and parenthesised notes.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// SuccessStyle marks succeeded tasks and active targets.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorPass)

	// ErrorStyle marks failed tasks and inactive targets.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFail)

	// WarningStyle marks degraded but non-fatal states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(colorCaution)

	// CmdStyle renders task paths and repository names.
	CmdStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	// VerboseStyle renders edge labels in `tasks --deps`.
	VerboseStyle = lipgloss.NewStyle().
			Foreground(colorDetail)

	// Error card and run summary.
	renderHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorFail).
				MarginBottom(1)
	renderCommandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorHighlight)
	renderLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCaution)
	renderValueStyle = lipgloss.NewStyle().
				Foreground(colorDetail)
	renderHintStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true).
			MarginTop(1)
)
