// File path: internal/version/buildprompt.go
package version

import (
	"regexp"
	"strings"
)

var sectionHeading = regexp.MustCompile(`(?m)^##\s+\d*\.?\s*(.*)`)

type documentSections struct {
	problem    string
	features   string
	technical  string
	buildBrief string
}

// BuildPrompt assembles a ready-to-paste build prompt from a compiled
// document: the most build-relevant sections first, then the full
// document as reference.
func BuildPrompt(documentContent, projectName string) string {
	sections := parseSections(documentContent)

	parts := []string{
		"# Build: " + projectName,
		"",
		"You are building a healthcare application based on the following Product Requirements Document.",
		"Follow the PRD closely. Build the MVP features first, then iterate.",
		"",
	}
	if sections.buildBrief != "" {
		parts = append(parts, "## Build Brief", sections.buildBrief, "")
	}
	if sections.features != "" {
		parts = append(parts, "## MVP Features", sections.features, "")
	}
	if sections.technical != "" {
		parts = append(parts, "## Technical Spec", sections.technical, "")
	}
	if sections.problem != "" {
		parts = append(parts, "## Problem Context", sections.problem, "")
	}
	parts = append(parts, "---", "", "## Full PRD Reference", "", documentContent)
	return strings.Join(parts, "\n")
}

func parseSections(markdown string) documentSections {
	var result documentSections

	matches := sectionHeading.FindAllStringSubmatchIndex(markdown, -1)
	for i, match := range matches {
		start := match[0]
		end := len(markdown)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(markdown[start:end])
		title := strings.ToLower(strings.TrimSpace(markdown[match[2]:match[3]]))

		switch {
		case strings.Contains(title, "problem"):
			result.problem = content
		case strings.Contains(title, "feature"):
			result.features = content
		case strings.Contains(title, "technical"):
			result.technical = content
		case strings.Contains(title, "build brief"), strings.Contains(title, "appendix"):
			result.buildBrief = content
		}
	}
	return result
}
