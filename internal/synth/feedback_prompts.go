// File path: internal/synth/feedback_prompts.go
package synth

import (
	"fmt"
	"strings"
)

const feedbackSystemPrompt = "You are a design thinking coach analyzing build feedback to recommend PRD updates. Output valid JSON only."

// FeedbackCategory values match what students tag entries with in the
// build tracker.
const (
	CategoryWin      = "win"
	CategoryGap      = "gap"
	CategoryQuestion = "question"
	CategoryPivot    = "pivot"
	CategoryNote     = "note"
)

// FeedbackEntry is a single tagged observation made while building.
type FeedbackEntry struct {
	Category string
	Content  string
}

// ChecklistStatus is one feature's build state for the prompt.
type ChecklistStatus struct {
	Feature string
	Status  string
}

// FeedbackInput bundles everything the feedback-analysis call needs.
type FeedbackInput struct {
	ProjectName   string
	VersionNumber string
	Document      string
	Entries       []FeedbackEntry
	Checklist     []ChecklistStatus
}

func feedbackPrompt(input FeedbackInput) string {
	grouped := groupByCategory(input.Entries)

	var checklist []string
	for _, c := range input.Checklist {
		checklist = append(checklist, fmt.Sprintf("- [%s] %s", c.Status, c.Feature))
	}
	checklistBlock := "(No checklist data)"
	if len(checklist) > 0 {
		checklistBlock = strings.Join(checklist, "\n")
	}

	return fmt.Sprintf(`You are analyzing build feedback for a healthcare design sprint project to recommend specific PRD updates.

**Project:** %s
**Version:** %s

## Current PRD
%s

## Feature Checklist Status
%s

## Build Feedback Entries

### Wins
%s

### Gaps
%s

### Questions
%s

### Pivots
%s

### Notes
%s

---

Analyze the feedback patterns and propose specific PRD updates. Return valid JSON with this structure:

{
  "overall_assessment": "2-3 sentence summary of build progress and key findings",
  "patterns": {
    "wins": ["pattern 1", "pattern 2"],
    "gaps": ["pattern 1", "pattern 2"],
    "questions": ["unresolved question 1"]
  },
  "suggested_updates": [
    {
      "action": "+ Add" | "~ Change" | "- Remove",
      "section": "which PRD section to modify",
      "description": "what specifically to add/change/remove",
      "rationale": "why, based on which feedback entries"
    }
  ],
  "scope_assessment": "minor" | "major"
}

scope_assessment should be "minor" if updates are refinements/additions within existing scope, or "major" if feedback suggests fundamental rethinking of features or approach.

Output ONLY the JSON. No code fences, no explanation.`,
		input.ProjectName, input.VersionNumber, input.Document, checklistBlock,
		grouped[CategoryWin], grouped[CategoryGap], grouped[CategoryQuestion],
		grouped[CategoryPivot], grouped[CategoryNote])
}

func groupByCategory(entries []FeedbackEntry) map[string]string {
	groups := make(map[string][]string)
	for _, e := range entries {
		groups[e.Category] = append(groups[e.Category], "- "+e.Content)
	}
	result := map[string]string{
		CategoryWin:      "(None)",
		CategoryGap:      "(None)",
		CategoryQuestion: "(None)",
		CategoryPivot:    "(None)",
		CategoryNote:     "(None)",
	}
	for category, items := range groups {
		result[category] = strings.Join(items, "\n")
	}
	return result
}
