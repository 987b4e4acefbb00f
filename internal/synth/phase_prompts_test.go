// File path: internal/synth/phase_prompts_test.go
package synth

import (
	"strings"
	"testing"
)

func TestPhasePromptDispatch(t *testing.T) {
	for n := 1; n <= 7; n++ {
		prompt, err := PhasePrompt(n, map[string]interface{}{}, "")
		if err != nil {
			t.Fatalf("phase %d: %v", n, err)
		}
		if !strings.Contains(prompt, "Respond with valid JSON") {
			t.Fatalf("phase %d prompt missing JSON contract", n)
		}
	}
	if _, err := PhasePrompt(8, nil, ""); err == nil {
		t.Fatal("phase 8 accepted")
	}
}

func TestPhase1PromptFallbacks(t *testing.T) {
	prompt, err := PhasePrompt(1, map[string]interface{}{"topic_description": "ED wait times"}, "")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if !strings.Contains(prompt, "**Topic Description:** ED wait times") {
		t.Fatalf("topic missing: %q", prompt)
	}
	if !strings.Contains(prompt, "**Observations:** (not provided)") {
		t.Fatal("empty field must fall back to (not provided)")
	}
}

func TestPhase4SubStepDispatch(t *testing.T) {
	inputs := map[string]interface{}{
		"journey_steps": []interface{}{
			map[string]interface{}{"step": "arrive at ED", "label": "neutral", "notes": "by ambulance"},
			map[string]interface{}{"step": "wait for triage", "label": "friction", "notes": "2h typical"},
		},
		"selected_opportunities": []interface{}{
			map[string]interface{}{"description": "no wait estimate", "source_step_index": float64(1)},
			map[string]interface{}{"description": "discharge confusion", "source_step_index": "custom"},
		},
	}

	journey, _ := PhasePrompt(4, inputs, SubStepJourney)
	if !strings.Contains(journey, "emotional_arc") {
		t.Fatal("journey sub-step missing its response shape")
	}
	if !strings.Contains(journey, "2. [FRICTION] wait for triage - 2h typical") {
		t.Fatalf("journey steps block: %q", journey)
	}

	hmw, _ := PhasePrompt(4, inputs, SubStepGenerateHMW)
	if !strings.Contains(hmw, "hmw_sets") {
		t.Fatal("hmw sub-step missing its response shape")
	}
	if !strings.Contains(hmw, "1. no wait estimate (source: step 2)") {
		t.Fatalf("numbered opportunity: %q", hmw)
	}
	if !strings.Contains(hmw, "2. discharge confusion (source: custom)") {
		t.Fatalf("custom opportunity: %q", hmw)
	}

	full, _ := PhasePrompt(4, inputs, "")
	if !strings.Contains(full, "recommended_focus") {
		t.Fatal("full synthesis missing its response shape")
	}
}

func TestPhase5PromptPriorities(t *testing.T) {
	inputs := map[string]interface{}{
		"feature_priorities": []interface{}{
			map[string]interface{}{"feature": "Patient kiosk", "impact": float64(5), "feasibility": float64(3), "in_mvp": true},
		},
	}
	prompt, _ := PhasePrompt(5, inputs, "")
	if !strings.Contains(prompt, "Patient kiosk - Impact: 5/5, Feasibility: 3/5, MVP: Yes") {
		t.Fatalf("priority line: %q", prompt)
	}
}

func TestPhase7PromptGuardrails(t *testing.T) {
	inputs := map[string]interface{}{
		"platform":     "claude_code",
		"project_name": "Triage Buddy",
		"branding": map[string]interface{}{
			"primary_color": "#0055aa",
			"tagline":       "Less waiting, more care",
		},
		"safety_guardrails": map[string]interface{}{
			"never_do":  []interface{}{"give medical advice"},
			"always_do": []interface{}{"show a disclaimer"},
		},
	}
	prompt, _ := PhasePrompt(7, inputs, "")
	if !strings.Contains(prompt, "Never do: give medical advice") {
		t.Fatalf("guardrails: %q", prompt)
	}
	if !strings.Contains(prompt, "Primary Color: #0055aa") {
		t.Fatalf("branding: %q", prompt)
	}

	bare, _ := PhasePrompt(7, map[string]interface{}{}, "")
	if !strings.Contains(bare, "Primary Color: (not set)") || !strings.Contains(bare, "Never do: (none)") {
		t.Fatalf("phase 7 fallbacks: %q", bare)
	}
}

func TestFeedbackPromptGrouping(t *testing.T) {
	input := FeedbackInput{
		ProjectName:   "Triage Buddy",
		VersionNumber: "v1.0",
		Document:      "# PRD",
		Entries: []FeedbackEntry{
			{Category: CategoryWin, Content: "kiosk flow works"},
			{Category: CategoryGap, Content: "no offline mode"},
			{Category: CategoryGap, Content: "slow queue refresh"},
		},
		Checklist: []ChecklistStatus{
			{Feature: "Patient kiosk", Status: "working"},
		},
	}
	prompt := feedbackPrompt(input)
	if !strings.Contains(prompt, "- kiosk flow works") {
		t.Fatalf("win entry: %q", prompt)
	}
	if !strings.Contains(prompt, "- no offline mode") || !strings.Contains(prompt, "- slow queue refresh") {
		t.Fatalf("gap entries: %q", prompt)
	}
	if !strings.Contains(prompt, "Patient kiosk") {
		t.Fatalf("checklist: %q", prompt)
	}

	empty := feedbackPrompt(FeedbackInput{ProjectName: "Triage Buddy", VersionNumber: "v1.0"})
	if !strings.Contains(empty, "(None)") || !strings.Contains(empty, "(No checklist data)") {
		t.Fatalf("empty sections: %q", empty)
	}
}
