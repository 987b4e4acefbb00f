// File path: internal/phase/catalog.go
package phase

import (
	"errors"
	"fmt"
)

// ErrInvalidPhase indicates a phase number outside 1..7. Lookups fail fast
// rather than falling back to phase 1's shape.
var ErrInvalidPhase = errors.New("phase number out of range")

// Count is the fixed number of sprint phases.
const Count = 7

// MicroLearning is the short teaching blurb shown before a phase's inputs.
type MicroLearning struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Config is the static definition of one sprint phase.
type Config struct {
	Number        int           `json:"number"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	MicroLearning MicroLearning `json:"micro_learning"`
}

var configs = [Count]Config{
	{
		Number:      1,
		Name:        "Problem Discovery",
		Description: "Define the healthcare problem you want to solve",
		MicroLearning: MicroLearning{
			Title: "What makes a good healthcare problem?",
			Content: "Great design starts with a real problem you've witnessed. Think about moments " +
				"in clinical settings where something felt broken, slow, or frustrating. The best " +
				"problems are specific, observable, and personally meaningful. Don't worry about " +
				"solutions yet.",
		},
	},
	{
		Number:      2,
		Name:        "User Deep-Dive",
		Description: "Understand your stakeholders and primary users",
		MicroLearning: MicroLearning{
			Title: "Who are you designing for?",
			Content: "Every healthcare problem affects multiple people. Identify who is most affected " +
				"(your primary user) and understand their daily reality: what they are trying to " +
				"accomplish, what frustrates them, and how they currently cope.",
		},
	},
	{
		Number:      3,
		Name:        "Jobs to Be Done",
		Description: "Identify the functional, emotional, and social jobs",
		MicroLearning: MicroLearning{
			Title: "What job is your user hiring a solution for?",
			Content: "People don't buy products; they hire them to do a job. Think about three " +
				"dimensions: the functional job, the emotional job, and the social job. Also look " +
				"at the tools currently in use and where they fall short.",
		},
	},
	{
		Number:      4,
		Name:        "Journey & Opportunities",
		Description: "Map the current experience and find opportunities",
		MicroLearning: MicroLearning{
			Title: "Where are the friction points?",
			Content: "Map the steps your user takes today. Label each step as friction, neutral, or " +
				"delight. The friction points are your design opportunities; reframe them as " +
				"\"How might we...\" statements.",
		},
	},
	{
		Number:      5,
		Name:        "Features & Priorities",
		Description: "Translate insights into prioritized features",
		MicroLearning: MicroLearning{
			Title: "From insights to features",
			Content: "Each insight should trace to a user need, a JTBD connection, and a concrete " +
				"feature. Rate each feature on impact and feasibility; only the highest-value, " +
				"most-feasible features make the MVP.",
		},
	},
	{
		Number:      6,
		Name:        "Technical Spec",
		Description: "Define constraints, success criteria, and tradeoffs",
		MicroLearning: MicroLearning{
			Title: "Setting your build constraints",
			Content: "Define what success looks like and the constraints you are working within: " +
				"technical limitations, accessibility standards, and security requirements for " +
				"health data. Document the reasoning behind each tradeoff.",
		},
	},
	{
		Number:      7,
		Name:        "Build Brief",
		Description: "Finalize the document for your build tool of choice",
		MicroLearning: MicroLearning{
			Title: "Preparing your build brief",
			Content: "Choose your platform, name your project, define edge cases, and set safety " +
				"guardrails. Everything from the previous phases is synthesized into a complete " +
				"requirements document and design story.",
		},
	},
}

// Configs returns the full ordered phase catalog.
func Configs() []Config {
	out := make([]Config, Count)
	copy(out, configs[:])
	return out
}

// Lookup returns the catalog entry for phase n.
func Lookup(n int) (Config, error) {
	if n < 1 || n > Count {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidPhase, n)
	}
	return configs[n-1], nil
}
