// File path: internal/phase/inputs.go
package phase

import (
	"encoding/json"
	"fmt"
)

// Typed input shapes for each of the seven sprint phases. The wire format is
// JSON; these structs define the canonical field set and defaults so that
// records saved under an older shape can be filled forward at load time.

type Phase1Inputs struct {
	TopicDescription   string   `json:"topic_description"`
	PersonalConnection string   `json:"personal_connection"`
	Observations       string   `json:"observations"`
	ResearchNotes      string   `json:"research_notes"`
	FileIDs            []string `json:"file_ids"`
}

type SecondaryUser struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

type Phase2Inputs struct {
	Stakeholders           []string        `json:"stakeholders"`
	PrimaryUserDescription string          `json:"primary_user_description"`
	UserContext            string          `json:"user_context"`
	Goals                  string          `json:"goals"`
	Frustrations           string          `json:"frustrations"`
	CopingStrategies       string          `json:"coping_strategies"`
	SecondaryUsers         []SecondaryUser `json:"secondary_users"`
}

type CurrentTool struct {
	Name      string `json:"name"`
	Strengths string `json:"strengths"`
	Gaps      string `json:"gaps"`
}

type Phase3Inputs struct {
	JobStatement          string        `json:"job_statement"`
	FunctionalDimension   string        `json:"functional_dimension"`
	EmotionalDimension    string        `json:"emotional_dimension"`
	SocialDimension       string        `json:"social_dimension"`
	CurrentTools          []CurrentTool `json:"current_tools"`
	CrossFieldInspiration string        `json:"cross_field_inspiration"`
}

// JourneyStep labels: friction, neutral, delight.
type JourneyStep struct {
	Step  string `json:"step"`
	Label string `json:"label"`
	Notes string `json:"notes"`
}

// Opportunity is a design opportunity selected from the journey map.
// SourceStep is the zero-based journey step index, or -1 for a custom entry.
type Opportunity struct {
	Description string `json:"description"`
	SourceStep  int    `json:"source_step"`
	ChosenHMW   string `json:"chosen_hmw,omitempty"`
}

type Phase4Inputs struct {
	JourneySteps           []JourneyStep          `json:"journey_steps"`
	JourneyMapAccepted     bool                   `json:"journey_map_accepted"`
	JourneySynthesis       map[string]interface{} `json:"journey_synthesis"`
	SelectedOpportunities  []Opportunity          `json:"selected_opportunities"`
	OpportunitiesAccepted  bool                   `json:"opportunities_accepted"`
	OpportunitiesSynthesis map[string]interface{} `json:"opportunities_synthesis"`
}

type InsightMapping struct {
	Insight        string `json:"insight"`
	Need           string `json:"need"`
	JTBDConnection string `json:"jtbd_connection"`
	Feature        string `json:"feature"`
	Rationale      string `json:"rationale"`
}

type FeaturePriority struct {
	Feature     string `json:"feature"`
	Impact      int    `json:"impact"`
	Feasibility int    `json:"feasibility"`
	InMVP       bool   `json:"in_mvp"`
}

type ReferenceApp struct {
	Name         string `json:"name"`
	WhatToBorrow string `json:"what_to_borrow"`
}

type Phase5Inputs struct {
	InsightToFeature   []InsightMapping  `json:"insight_to_feature"`
	FeaturePriorities  []FeaturePriority `json:"feature_priorities"`
	ProductPersonality string            `json:"product_personality"`
	ReferenceApps      []ReferenceApp    `json:"reference_apps"`
}

type TradeoffDecision struct {
	Question  string `json:"question"`
	Choice    string `json:"choice"`
	Rationale string `json:"rationale"`
}

type Phase6Inputs struct {
	TechnicalConstraints      string             `json:"technical_constraints"`
	SuccessCriteria           []string           `json:"success_criteria"`
	AccessibilityRequirements string             `json:"accessibility_requirements"`
	SecurityRequirements      string             `json:"security_requirements"`
	TradeoffDecisions         []TradeoffDecision `json:"tradeoff_decisions"`
}

type EdgeCase struct {
	Scenario         string `json:"scenario"`
	ExpectedBehavior string `json:"expected_behavior"`
}

type Branding struct {
	PrimaryColor string `json:"primary_color"`
	Tagline      string `json:"tagline"`
}

type SafetyGuardrails struct {
	NeverDo  []string `json:"never_do"`
	AlwaysDo []string `json:"always_do"`
}

type Phase7Inputs struct {
	Platform         string           `json:"platform"`
	DeploymentGoal   string           `json:"deployment_goal"`
	TimeConstraint   string           `json:"time_constraint"`
	EdgeCases        []EdgeCase       `json:"edge_cases"`
	ProjectName      string           `json:"project_name"`
	Branding         Branding         `json:"branding"`
	SafetyGuardrails SafetyGuardrails `json:"safety_guardrails"`
}

// EmptyInputs returns the defined-default input record for a phase.
func EmptyInputs(n int) (map[string]interface{}, error) {
	var shape interface{}
	switch n {
	case 1:
		shape = Phase1Inputs{FileIDs: []string{}}
	case 2:
		shape = Phase2Inputs{Stakeholders: []string{}, SecondaryUsers: []SecondaryUser{}}
	case 3:
		shape = Phase3Inputs{CurrentTools: []CurrentTool{}}
	case 4:
		shape = Phase4Inputs{JourneySteps: []JourneyStep{}, SelectedOpportunities: []Opportunity{}}
	case 5:
		shape = Phase5Inputs{
			InsightToFeature:  []InsightMapping{},
			FeaturePriorities: []FeaturePriority{},
			ReferenceApps:     []ReferenceApp{},
		}
	case 6:
		shape = Phase6Inputs{SuccessCriteria: []string{}, TradeoffDecisions: []TradeoffDecision{}}
	case 7:
		shape = Phase7Inputs{
			Platform:         "claude_code",
			EdgeCases:        []EdgeCase{},
			SafetyGuardrails: SafetyGuardrails{NeverDo: []string{}, AlwaysDo: []string{}},
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPhase, n)
	}
	data, err := json.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("marshal phase %d defaults: %w", n, err)
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal phase %d defaults: %w", n, err)
	}
	return out, nil
}

// MergeDefaults fills missing fields of a saved input record with the phase's
// defined defaults. Saved values win key-by-key; unknown keys are dropped so a
// schema change migrates records forward at load time.
func MergeDefaults(n int, saved map[string]interface{}) (map[string]interface{}, error) {
	merged, err := EmptyInputs(n)
	if err != nil {
		return nil, err
	}
	for key, value := range saved {
		if _, known := merged[key]; known {
			merged[key] = value
		}
	}
	return merged, nil
}

// HasAnyInput reports whether the record contains at least one non-empty
// field. Used for the skip-intro gate.
func HasAnyInput(inputs map[string]interface{}) bool {
	for _, value := range inputs {
		if nonEmptyValue(value) {
			return true
		}
	}
	return false
}

func nonEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		for _, nested := range v {
			if nonEmptyValue(nested) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
