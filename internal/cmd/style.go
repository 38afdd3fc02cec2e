package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	detailStyle     = lipgloss.NewStyle().Faint(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func printSuccess(message string, details map[string]string, order ...string) {
	fmt.Println(successStyle.Render("✅ " + message))
	for _, key := range order {
		if value := details[key]; value != "" {
			fmt.Printf("  %s %s\n", labelStyle.Render(key+":"), value)
		}
	}
}

func printError(message, details, suggestion string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("❌ Error:")+" "+message)
	if details != "" {
		fmt.Fprintln(os.Stderr, detailStyle.Render(details))
	}
	if suggestion != "" {
		fmt.Fprintln(os.Stderr, suggestionStyle.Render("💡 Suggestion:")+" "+suggestion)
	}
}

func printNotes(label string, notes []string) {
	if len(notes) == 0 {
		return
	}
	fmt.Printf("  %s (%d)\n", labelStyle.Render(label+":"), len(notes))
	for i, note := range notes {
		fmt.Printf("    %d. %s\n", i+1, note)
	}
}
