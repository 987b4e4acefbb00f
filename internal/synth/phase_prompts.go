// File path: internal/synth/phase_prompts.go
package synth

import (
	"fmt"
	"strings"
)

const (
	// SubStepJourney asks for a journey-map analysis before opportunities
	// are selected.
	SubStepJourney = "journey"
	// SubStepGenerateHMW asks for "How Might We" options for the selected
	// opportunities.
	SubStepGenerateHMW = "generate_hmw"
)

const coachSystemPrompt = `You are an AI design thinking coach for the UVA Medical Design Program. You help medical students synthesize their healthcare design research into structured insights.

Rules:
- Always respond with valid JSON only - no markdown, no code fences, no extra text
- Be encouraging but honest - push students to think deeper
- Preserve the student's voice and specific examples
- Focus on healthcare-specific considerations
- Keep language accessible for medical students, not software engineers`

// PhasePrompt renders the user message for a phase synthesis call. Phase 4
// dispatches on subStep; every other phase ignores it.
func PhasePrompt(phase int, inputs map[string]interface{}, subStep string) (string, error) {
	switch phase {
	case 1:
		return phase1Prompt(inputs), nil
	case 2:
		return phase2Prompt(inputs), nil
	case 3:
		return phase3Prompt(inputs), nil
	case 4:
		switch subStep {
		case SubStepJourney:
			return phase4JourneyPrompt(inputs), nil
		case SubStepGenerateHMW:
			return phase4HMWPrompt(inputs), nil
		default:
			return phase4FullPrompt(inputs), nil
		}
	case 5:
		return phase5Prompt(inputs), nil
	case 6:
		return phase6Prompt(inputs), nil
	case 7:
		return phase7Prompt(inputs), nil
	default:
		return "", fmt.Errorf("no prompt template for phase %d", phase)
	}
}

func phase1Prompt(inputs map[string]interface{}) string {
	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student synthesize their problem discovery research.

The student has provided the following inputs about a healthcare problem they want to explore:

**Topic Description:** %s

**Personal Connection:** %s

**Observations:** %s

**Research Notes:** %s

Synthesize these inputs into a structured analysis. Preserve the student's voice and any specific quotes or stories they shared. Help them see patterns and sharpen their problem focus.

Respond with valid JSON in this exact format:
{
  "summary": "A 2-3 sentence synthesis of the problem area",
  "key_themes": ["theme 1", "theme 2", "theme 3"],
  "problem_statement": "A clear, specific problem statement derived from their inputs",
  "questions_to_explore": ["question 1", "question 2", "question 3"]
}`,
		promptText(inputs, "topic_description"),
		promptText(inputs, "personal_connection"),
		promptText(inputs, "observations"),
		promptText(inputs, "research_notes"))
}

func phase2Prompt(inputs map[string]interface{}) string {
	stakeholders := joinStrings(inputs, "stakeholders", ", ", "(none listed)")
	var secondary []string
	for _, item := range promptSlice(inputs, "secondary_users") {
		user, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		secondary = append(secondary, fmt.Sprintf("%s: %s", stringField(user, "name"), stringField(user, "notes")))
	}
	secondaryBlock := "(none listed)"
	if len(secondary) > 0 {
		secondaryBlock = strings.Join(secondary, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student build empathy for their users.

The student has identified these stakeholders and user details:

**Stakeholders:** %s

**Primary User Description:** %s

**User Context:** %s

**Goals:** %s

**Frustrations:** %s

**Coping Strategies:** %s

**Secondary Users:**
  %s

Synthesize these into a rich user understanding. Help the student see their primary user as a real person with specific needs.

Respond with valid JSON in this exact format:
{
  "persona_summary": "A vivid 3-4 sentence persona description of the primary user",
  "stakeholder_map": ["stakeholder 1 - their role and relationship to the problem", "stakeholder 2 - ..."],
  "key_frustrations": ["frustration 1", "frustration 2", "frustration 3"],
  "key_goals": ["goal 1", "goal 2", "goal 3"],
  "empathy_insights": ["insight about what the student might not have considered 1", "insight 2"]
}`,
		stakeholders,
		promptText(inputs, "primary_user_description"),
		promptText(inputs, "user_context"),
		promptText(inputs, "goals"),
		promptText(inputs, "frustrations"),
		promptText(inputs, "coping_strategies"),
		secondaryBlock)
}

func phase3Prompt(inputs map[string]interface{}) string {
	var tools []string
	for _, item := range promptSlice(inputs, "current_tools") {
		tool, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tools = append(tools, fmt.Sprintf("%s - Strengths: %s | Gaps: %s",
			stringField(tool, "name"), stringField(tool, "strengths"), stringField(tool, "gaps")))
	}
	toolBlock := "(none listed)"
	if len(tools) > 0 {
		toolBlock = strings.Join(tools, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student apply Jobs to Be Done (JTBD) theory.

The student has analyzed the jobs their user is trying to accomplish:

**Job Statement:** %s

**Functional Dimension:** %s

**Emotional Dimension:** %s

**Social Dimension:** %s

**Current Tools & Workarounds:**
  %s

**Cross-Field Inspiration:** %s

Synthesize these into a clear JTBD analysis. Identify where current solutions fall short and where the biggest opportunities lie.

Respond with valid JSON in this exact format:
{
  "job_statement_refined": "A polished version of their job statement in the format: When [situation], I want to [motivation], so I can [outcome]",
  "functional_job": "Summary of the functional dimension",
  "emotional_job": "Summary of the emotional dimension",
  "social_job": "Summary of the social dimension",
  "opportunity_gaps": ["gap between current tools and ideal solution 1", "gap 2", "gap 3"]
}`,
		promptText(inputs, "job_statement"),
		promptText(inputs, "functional_dimension"),
		promptText(inputs, "emotional_dimension"),
		promptText(inputs, "social_dimension"),
		toolBlock,
		promptText(inputs, "cross_field_inspiration"))
}

func phase4JourneyPrompt(inputs map[string]interface{}) string {
	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student analyze their user journey map.

The student has mapped these journey steps:

**Journey Steps:**
  %s

Synthesize the journey map into a structured analysis. Identify the emotional arc, friction points, and delight moments.

Respond with valid JSON in this exact format:
{
  "journey_summary": "A 2-3 sentence narrative of the current user journey",
  "emotional_arc": "A description of how the user's emotional state changes across the journey",
  "friction_points": [{"step_index": 0, "description": "what makes this step painful", "severity": "high"}],
  "delight_moments": ["what works well in the current experience"],
  "patterns": ["pattern or theme noticed across multiple steps"],
  "suggested_focus_areas": ["area worth exploring for design opportunities"]
}`, journeyStepsBlock(inputs))
}

func phase4HMWPrompt(inputs map[string]interface{}) string {
	var opportunities []string
	for i, item := range promptSlice(inputs, "selected_opportunities") {
		opp, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		source := "custom"
		if idx, ok := numberField(opp, "source_step_index"); ok && idx >= 0 {
			source = fmt.Sprintf("step %d", idx+1)
		}
		opportunities = append(opportunities, fmt.Sprintf("%d. %s (source: %s)",
			i+1, stringField(opp, "description"), source))
	}
	oppBlock := "(none listed)"
	if len(opportunities) > 0 {
		oppBlock = strings.Join(opportunities, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student generate "How Might We" statements for their selected design opportunities.

The student's journey map:
  %s

The student has selected these opportunities to explore:
  %s

For each opportunity, generate exactly 3 "How Might We..." statement options. Each HMW should:
- Reframe the problem as an opportunity
- Be specific enough to inspire solutions but open enough to allow creative exploration
- Connect back to the user's experience from the journey map

Respond with valid JSON in this exact format:
{
  "hmw_sets": [
    {
      "opportunity_description": "the opportunity description",
      "hmw_options": ["How might we ...", "How might we ...", "How might we ..."]
    }
  ]
}`, journeyStepsBlock(inputs), oppBlock)
}

func phase4FullPrompt(inputs map[string]interface{}) string {
	var opportunities []string
	for _, item := range promptSlice(inputs, "selected_opportunities") {
		opp, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		opportunities = append(opportunities, fmt.Sprintf("%s -> HMW: %s",
			stringField(opp, "description"), stringField(opp, "chosen_hmw")))
	}
	oppBlock := "(none listed)"
	if len(opportunities) > 0 {
		oppBlock = strings.Join(opportunities, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student map the user journey and identify opportunities.

The student has mapped these journey steps:

**Journey Steps:**
  %s

**Selected Opportunities & How Might We Statements:**
  %s

Synthesize the journey into clear insights. Highlight the most impactful friction points and help the student focus on the strongest opportunity.

Respond with valid JSON in this exact format:
{
  "journey_summary": "A 2-3 sentence narrative of the current user journey",
  "friction_points": ["the most significant friction point 1", "point 2", "point 3"],
  "top_opportunities": ["opportunity 1", "opportunity 2", "opportunity 3"],
  "hmw_recommendations": ["refined HMW statement 1", "refined HMW 2", "refined HMW 3"],
  "recommended_focus": "A clear recommendation for which opportunity to pursue and why"
}`, journeyStepsBlock(inputs), oppBlock)
}

func phase5Prompt(inputs map[string]interface{}) string {
	var mappings []string
	for _, item := range promptSlice(inputs, "insight_to_feature") {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		mappings = append(mappings, fmt.Sprintf("Insight: %s -> Need: %s -> JTBD: %s -> Feature: %s (%s)",
			stringField(m, "insight"), stringField(m, "need"), stringField(m, "jtbd_connection"),
			stringField(m, "feature"), stringField(m, "rationale")))
	}
	mappingBlock := "(none listed)"
	if len(mappings) > 0 {
		mappingBlock = strings.Join(mappings, "\n  ")
	}

	var priorities []string
	for _, item := range promptSlice(inputs, "feature_priorities") {
		f, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		inMVP := "No"
		if b, ok := f["in_mvp"].(bool); ok && b {
			inMVP = "Yes"
		}
		impact, _ := numberField(f, "impact")
		feasibility, _ := numberField(f, "feasibility")
		priorities = append(priorities, fmt.Sprintf("%s - Impact: %d/5, Feasibility: %d/5, MVP: %s",
			stringField(f, "feature"), impact, feasibility, inMVP))
	}
	priorityBlock := "(none listed)"
	if len(priorities) > 0 {
		priorityBlock = strings.Join(priorities, "\n  ")
	}

	var refApps []string
	for _, item := range promptSlice(inputs, "reference_apps") {
		a, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		refApps = append(refApps, fmt.Sprintf("%s: %s", stringField(a, "name"), stringField(a, "what_to_borrow")))
	}
	refAppBlock := "(none listed)"
	if len(refApps) > 0 {
		refAppBlock = strings.Join(refApps, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student translate insights into prioritized features.

The student has mapped insights to features and prioritized them:

**Insight -> Feature Mappings:**
  %s

**Feature Priorities:**
  %s

**Product Personality:** %s

**Reference Apps:**
  %s

Synthesize these into a clear feature strategy. Help the student see how their clinical insights trace to specific, buildable features. Be critical about MVP scope.

Respond with valid JSON in this exact format:
{
  "mvp_features": ["feature 1 - brief description", "feature 2", "feature 3"],
  "prioritization_rationale": "Why these features were selected for MVP",
  "product_personality_summary": "How the product should feel to users",
  "feature_roadmap": ["v1 (MVP): what's included", "v2 (future): what's deferred and why"]
}`,
		mappingBlock, priorityBlock, promptText(inputs, "product_personality"), refAppBlock)
}

func phase6Prompt(inputs map[string]interface{}) string {
	criteria := joinStrings(inputs, "success_criteria", ", ", "(none listed)")
	var tradeoffs []string
	for _, item := range promptSlice(inputs, "tradeoff_decisions") {
		t, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tradeoffs = append(tradeoffs, fmt.Sprintf("Q: %s -> Choice: %s (%s)",
			stringField(t, "question"), stringField(t, "choice"), stringField(t, "rationale")))
	}
	tradeoffBlock := "(none listed)"
	if len(tradeoffs) > 0 {
		tradeoffBlock = strings.Join(tradeoffs, "\n  ")
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student define technical constraints and success criteria.

The student has defined:

**Technical Constraints:** %s

**Success Criteria:** %s

**Accessibility Requirements:** %s

**Security Requirements:** %s

**Tradeoff Decisions:**
  %s

Synthesize these into a clear technical specification summary. Present tradeoffs clearly and assess feasibility. Keep it accessible for a medical student audience.

Respond with valid JSON in this exact format:
{
  "technical_summary": "A plain-language summary of the technical approach",
  "feasibility_assessment": "How feasible is this to build in the available time?",
  "key_tradeoffs": ["tradeoff 1 and its implication", "tradeoff 2"],
  "success_metrics": ["measurable success criterion 1", "criterion 2", "criterion 3"]
}`,
		promptText(inputs, "technical_constraints"), criteria,
		promptText(inputs, "accessibility_requirements"),
		promptText(inputs, "security_requirements"),
		tradeoffBlock)
}

func phase7Prompt(inputs map[string]interface{}) string {
	var edgeCases []string
	for _, item := range promptSlice(inputs, "edge_cases") {
		e, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		edgeCases = append(edgeCases, fmt.Sprintf("%s -> %s",
			stringField(e, "scenario"), stringField(e, "expected_behavior")))
	}
	edgeCaseBlock := "(none listed)"
	if len(edgeCases) > 0 {
		edgeCaseBlock = strings.Join(edgeCases, "\n  ")
	}

	branding, _ := inputs["branding"].(map[string]interface{})
	guardrails, _ := inputs["safety_guardrails"].(map[string]interface{})
	neverDo := joinStrings(guardrails, "never_do", ", ", "(none)")
	alwaysDo := joinStrings(guardrails, "always_do", ", ", "(none)")

	primaryColor := stringField(branding, "primary_color")
	if primaryColor == "" {
		primaryColor = "(not set)"
	}
	tagline := stringField(branding, "tagline")
	if tagline == "" {
		tagline = "(not set)"
	}

	return fmt.Sprintf(`You are a healthcare design thinking coach helping a medical student prepare their final build brief.

The student has defined their build parameters:

**Platform:** %s
**Project Name:** %s
**Deployment Goal:** %s
**Time Constraint:** %s

**Edge Cases:**
  %s

**Branding:**
  Primary Color: %s
  Tagline: %s

**Safety Guardrails:**
  Never do: %s
  Always do: %s

Synthesize everything into a build brief summary and generate a complete prompt that the student can paste into their build tool. The build prompt should be comprehensive enough to produce a working prototype.

Respond with valid JSON in this exact format:
{
  "prd_summary": "A concise summary of what's being built and why",
  "build_prompt": "A complete, detailed prompt the student can paste into Claude Code, Replit, or Lovable to build their prototype. Include all features, constraints, and requirements.",
  "key_requirements": ["requirement 1", "requirement 2", "requirement 3"],
  "guardrails_summary": "Summary of safety and behavioral guardrails"
}`,
		promptText(inputs, "platform"),
		promptText(inputs, "project_name"),
		promptText(inputs, "deployment_goal"),
		promptText(inputs, "time_constraint"),
		edgeCaseBlock, primaryColor, tagline, neverDo, alwaysDo)
}

func journeyStepsBlock(inputs map[string]interface{}) string {
	var steps []string
	for i, item := range promptSlice(inputs, "journey_steps") {
		step, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		steps = append(steps, fmt.Sprintf("%d. [%s] %s - %s",
			i+1, strings.ToUpper(stringField(step, "label")),
			stringField(step, "step"), stringField(step, "notes")))
	}
	if len(steps) == 0 {
		return "(none listed)"
	}
	return strings.Join(steps, "\n  ")
}

func promptText(inputs map[string]interface{}, key string) string {
	if inputs != nil {
		if v, ok := inputs[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "(not provided)"
}

func promptSlice(inputs map[string]interface{}, key string) []interface{} {
	if inputs == nil {
		return nil
	}
	items, _ := inputs[key].([]interface{})
	return items
}

func joinStrings(inputs map[string]interface{}, key, sep, empty string) string {
	var values []string
	for _, item := range promptSlice(inputs, key) {
		if v, ok := item.(string); ok && strings.TrimSpace(v) != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return empty
	}
	return strings.Join(values, sep)
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func numberField(m map[string]interface{}, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
