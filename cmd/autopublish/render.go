package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	autopublish "github.com/belonio2793/backlinkoo-solar-system-sub002"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderBatch(out io.Writer, result *autopublish.BatchResult, asJSON bool) error {
	if asJSON {
		return writeJSON(out, result)
	}

	lines := []string{
		titleStyle.Render("Campaign " + result.CampaignID),
		fmt.Sprintf("%s %d  %s %d  %s %d",
			mutedStyle.Render("sites"), result.TotalSites,
			okStyle.Render("published"), result.Succeeded,
			errorStyle.Render("failed"), result.Failed),
	}
	if result.Succeeded > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("avg %.0fms  words %d  seo %.1f",
			result.AverageProcessingMs, result.TotalWords, result.SEOScore)))
	}
	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Result != nil:
			lines = append(lines, fmt.Sprintf("%s %s  template %d  %s",
				okStyle.Render("✓"), outcome.SiteID, outcome.Result.TemplateID, outcome.Result.PublishedURL))
		case outcome.Failure != nil:
			retry := ""
			if outcome.Failure.Retryable {
				retry = mutedStyle.Render(" (retryable)")
			}
			lines = append(lines, fmt.Sprintf("%s %s  %s: %s%s",
				errorStyle.Render("✗"), outcome.SiteID, outcome.Failure.Stage, outcome.Failure.ErrorMessage, retry))
		}
	}
	_, err := fmt.Fprintln(out, panelStyle.Render(strings.Join(lines, "\n")))
	return err
}

func renderAssignments(out io.Writer, assignments []autopublish.Assignment) {
	fmt.Fprintln(out, titleStyle.Render("Rotation preview"))
	for _, assignment := range assignments {
		fmt.Fprintf(out, "%s  template %d  %s\n", assignment.SiteID, assignment.TemplateID, mutedStyle.Render(assignment.Reason))
	}
}

func renderAvailability(out io.Writer, availability *autopublish.SlugAvailability) {
	if availability.Available {
		fmt.Fprintln(out, okStyle.Render("available"), availability.Slug)
		return
	}
	fmt.Fprintln(out, errorStyle.Render("taken"), availability.Slug, mutedStyle.Render("on "+strings.Join(availability.ConflictingSites, ", ")))
	for _, alternative := range availability.Alternatives {
		fmt.Fprintln(out, "  "+alternative)
	}
}

func renderTemplates(out io.Writer, catalog []autopublish.Template) {
	for _, tpl := range catalog {
		categories := make([]string, 0, len(tpl.Categories))
		for _, category := range tpl.Categories {
			categories = append(categories, string(category))
		}
		fmt.Fprintf(out, "%2d  %s  %s\n", tpl.ID, titleStyle.Render(tpl.Name), mutedStyle.Render(strings.Join(categories, ", ")))
	}
}
