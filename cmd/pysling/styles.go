// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle renders the application name in help output.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	// SubtitleStyle renders section headers in help output.
	SubtitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

	// WarningStyle renders non-fatal warnings.
	WarningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)
