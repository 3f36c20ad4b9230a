package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	header   lipgloss.Style
	footer   lipgloss.Style
	high     lipgloss.Style
	medium   lipgloss.Style
	low      lipgloss.Style
	inactive lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1),
		footer:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		medium:   lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		low:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		inactive: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}
