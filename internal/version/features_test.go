// File path: internal/version/features_test.go
package version

import (
	"fmt"
	"strings"
	"testing"
)

const sampleDocument = `# Triage Buddy - Product Requirements Document

## 1. Problem Statement
Emergency departments lose track of low-acuity patients.

## 5. Feature Specification

### MVP Features
- **Patient kiosk**: self service arrival flow
- **Queue display** - live wait estimate
- Escalation alerts for deteriorating vitals

### Nice to Have
- Multilingual voice prompts

## 6. Technical Specification
Web app, no PHI at rest.
`

func TestExtractMVPFeaturesCollectsMVPBullets(t *testing.T) {
	features := ExtractMVPFeatures(sampleDocument)
	want := []string{
		"Patient kiosk",
		"Queue display",
		"Escalation alerts for deteriorating vitals",
	}
	if len(features) != len(want) {
		t.Fatalf("got %d features %v, want %d", len(features), features, len(want))
	}
	for i, feature := range want {
		if features[i] != feature {
			t.Fatalf("feature %d: got %q, want %q", i, features[i], feature)
		}
	}
}

func TestExtractMVPFeaturesStopsAtDeferredSubsection(t *testing.T) {
	for _, feature := range ExtractMVPFeatures(sampleDocument) {
		if strings.Contains(feature, "Multilingual") {
			t.Fatalf("collected deferred feature %q", feature)
		}
	}
}

func TestExtractMVPFeaturesCapsAtSeven(t *testing.T) {
	var b strings.Builder
	b.WriteString("## 5. Feature Specification\n### MVP\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "- Feature number %d does a thing\n", i)
	}
	features := ExtractMVPFeatures(b.String())
	if len(features) != 7 {
		t.Fatalf("got %d features, want cap of 7", len(features))
	}
}

func TestExtractMVPFeaturesEmptyWithoutFeatureSection(t *testing.T) {
	doc := "## 1. Problem Statement\n- not a feature\n"
	if features := ExtractMVPFeatures(doc); len(features) != 0 {
		t.Fatalf("got %v, want none", features)
	}
}

func TestBuildPromptIncludesKeySections(t *testing.T) {
	prompt := BuildPrompt(sampleDocument, "Triage Buddy")

	if !strings.HasPrefix(prompt, "# Build: Triage Buddy") {
		t.Fatalf("missing title: %q", prompt[:40])
	}
	for _, heading := range []string{"## MVP Features", "## Technical Spec", "## Problem Context", "## Full PRD Reference"} {
		if !strings.Contains(prompt, heading) {
			t.Fatalf("missing %q section", heading)
		}
	}
	if !strings.Contains(prompt, "Patient kiosk") {
		t.Fatal("feature content not carried into prompt")
	}
	if !strings.Contains(prompt, sampleDocument) {
		t.Fatal("full document not appended as reference")
	}
}
