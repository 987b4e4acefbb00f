// File path: internal/synth/artifact_prompts.go
package synth

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const documentSystemPrompt = "You are a technical writer compiling a Product Requirements Document for a healthcare design sprint project. Output clean Markdown only."

const presentationSystemPrompt = "You are a presentation designer generating a self-contained reveal.js HTML deck. Output a complete HTML document only."

// PhaseContent is one phase's contribution to the compiled document.
type PhaseContent struct {
	Phase     int
	Inputs    map[string]interface{}
	Synthesis map[string]interface{}
}

// ProjectInfo carries the display metadata stamped into artifacts.
type ProjectInfo struct {
	ProjectName string
	StudentName string
}

// Branding controls the look of the generated presentation.
type Branding struct {
	PrimaryColor string
	Tagline      string
	ProjectName  string
}

// SuggestedUpdate is one reviewable change proposal from feedback
// analysis. Action is one of "+ Add", "~ Change", "- Remove".
type SuggestedUpdate struct {
	Action      string `json:"action"`
	Section     string `json:"section"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

func documentPrompt(phases []PhaseContent, project ProjectInfo) string {
	sorted := make([]PhaseContent, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Phase < sorted[j].Phase })

	var blocks []string
	for _, p := range sorted {
		inputs, _ := json.MarshalIndent(p.Inputs, "", "  ")
		synthesis, _ := json.MarshalIndent(p.Synthesis, "", "  ")
		blocks = append(blocks, fmt.Sprintf("## Phase %d Data\n**Inputs:**\n%s\n\n**AI Synthesis:**\n%s",
			p.Phase, inputs, synthesis))
	}

	return fmt.Sprintf(`You are compiling a complete Product Requirements Document (PRD) from a medical student's 7-phase design thinking sprint.

**Student:** %s
**Project:** %s

Below is all the data from their 7 phases of work. Compile this into a polished, comprehensive PRD in Markdown format.

%s

---

Create a PRD with these sections. Use the student's actual insights and language wherever possible - don't genericize or dilute their specific observations:

# %s - Product Requirements Document

## 1. Problem Statement
Synthesize Phase 1 discovery into a clear problem definition.

## 2. User Personas
Build rich persona(s) from Phase 2 deep-dive data.

## 3. Jobs to Be Done
Structure the JTBD analysis from Phase 3 with functional, emotional, and social dimensions.

## 4. User Journey & Opportunities
Summarize the journey map and key opportunities from Phase 4.

## 5. Feature Specification
List MVP features with priorities from Phase 5. Include the insight-to-feature traceability.

## 6. Technical Specification
Constraints, success criteria, and tradeoffs from Phase 6.

## 7. Build Brief
Platform, deployment, edge cases, branding, and safety guardrails from Phase 7.

## 8. Appendix
Include the full build prompt from Phase 7 synthesis.

Output ONLY the Markdown content. Do not wrap in code fences. Write in a professional but accessible tone appropriate for a medical student audience.`,
		project.StudentName, project.ProjectName,
		strings.Join(blocks, "\n\n---\n\n"),
		project.ProjectName)
}

func revisionPrompt(previousDocument string, updates []SuggestedUpdate, projectName string) string {
	var lines []string
	for i, u := range updates {
		lines = append(lines, fmt.Sprintf("%d. %s | Section: %s | %s\n   Rationale: %s",
			i+1, u.Action, u.Section, u.Description, u.Rationale))
	}

	return fmt.Sprintf(`You are revising a Product Requirements Document (PRD) for a healthcare design sprint project based on approved build feedback.

**Project:** %s

Here is the current PRD:

---
%s
---

Apply EXACTLY the following approved updates. Do not make any other changes to scope, features, or requirements - the update list below is the complete and only set of changes:

%s

Rules:
- "+ Add" updates introduce new content in the named section
- "~ Change" updates modify existing content in the named section
- "- Remove" updates delete the described content from the named section
- Preserve the document structure, headings, and the student's voice everywhere else
- Keep all sections that are not named in an update untouched

Output ONLY the complete revised Markdown document. Do not wrap in code fences.`,
		projectName, previousDocument, strings.Join(lines, "\n"))
}

func presentationPrompt(documentContent string, branding Branding) string {
	primaryColor := branding.PrimaryColor
	if primaryColor == "" {
		primaryColor = "#18181b"
	}

	return fmt.Sprintf(`You are generating a self-contained reveal.js HTML presentation that tells the design story of a healthcare project.

**Project:** %s
**Primary Color:** %s
**Tagline:** %s

Here is the full PRD to base the story on:

---
%s
---

Create a complete, self-contained HTML file using reveal.js (loaded from CDN) that tells the design story in 8-12 slides:

1. **Title slide** - Project name, tagline, student name
2. **The Problem** - What healthcare problem was discovered
3. **The User** - Who this is designed for (persona)
4. **The Job** - What job the user is hiring a solution for
5. **The Journey** - Key friction points and opportunities
6. **The Solution** - MVP features and how they address the jobs
7. **Technical Approach** - Platform, constraints, key tradeoffs
8. **Build Brief** - What gets built and the guardrails
9. **Next Steps** - What success looks like

Design guidelines:
- Use the primary color as the accent color throughout
- Use a clean, modern design with generous whitespace
- Font: system-ui or sans-serif stack
- Keep text concise - bullet points, not paragraphs
- Use the reveal.js "white" theme as the base, customized with the brand color
- Load reveal.js from CDN: https://cdn.jsdelivr.net/npm/reveal.js@5.1.0/
- The HTML must be completely self-contained (inline CSS, CDN JS)
- Include proper viewport meta tags for responsive display

Output ONLY the complete HTML file content. Do not wrap in code fences.`,
		branding.ProjectName, primaryColor, branding.Tagline, documentContent)
}
