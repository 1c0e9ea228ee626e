package plan

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/pipeline"
)

// theme groups reusable styles for the execution plan rendering.
type theme struct {
	header    lipgloss.Style
	stage     lipgloss.Style
	agentName lipgloss.Style
	agentMeta lipgloss.Style
	priority  lipgloss.Style
	empty     lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")),
		stage: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("44")),
		agentName: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		agentMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		priority: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		empty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true),
	}
}

// Render formats an execution plan for terminal display, stage by stage in
// run order.
func Render(executionPlan *pipeline.ExecutionPlan) string {
	styles := defaultTheme()

	var b strings.Builder
	b.WriteString(styles.header.Render("Execution plan · inbox "+executionPlan.InboxID) + "\n\n")

	b.WriteString(renderStage(styles, "1. Pre-process (sequential)", executionPlan.PreProcess, true))
	b.WriteString(renderResponse(styles, executionPlan.Response))
	b.WriteString(renderStage(styles, "3. Main (concurrent)", executionPlan.Main, true))
	b.WriteString(renderStage(styles, "4. Post-process (sequential)", executionPlan.PostProcess, true))

	return b.String()
}

func renderStage(styles theme, title string, entries []pipeline.PlanEntry, showPriority bool) string {
	var b strings.Builder
	b.WriteString(styles.stage.Render(title) + "\n")

	if len(entries) == 0 {
		b.WriteString("  " + styles.empty.Render("no agents") + "\n\n")
		return b.String()
	}

	for _, entry := range entries {
		line := "  " + styles.agentName.Render(entry.AgentName) +
			" " + styles.agentMeta.Render("("+entry.AgentType+")")
		if showPriority {
			line += " " + styles.priority.Render(fmt.Sprintf("priority=%d", entry.Priority))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	return b.String()
}

func renderResponse(styles theme, entry *pipeline.PlanEntry) string {
	var b strings.Builder
	b.WriteString(styles.stage.Render("2. Response") + "\n")

	if entry == nil {
		b.WriteString("  " + styles.empty.Render("no response agent") + "\n\n")
		return b.String()
	}

	b.WriteString("  " + styles.agentName.Render(entry.AgentName) +
		" " + styles.agentMeta.Render("("+entry.AgentType+")") + "\n\n")

	return b.String()
}
