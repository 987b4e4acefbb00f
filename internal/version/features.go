// File path: internal/version/features.go
package version

import (
	"regexp"
	"strings"
)

const maxChecklistFeatures = 7

var (
	featureSection  = regexp.MustCompile(`(?i)^##\s+\d*\.?\s*feature`)
	numberedSection = regexp.MustCompile(`^##\s+\d`)
	mvpHeading      = regexp.MustCompile(`(?i)mvp|minimum|core|priority.*high`)
	deferredHeading = regexp.MustCompile(`(?i)nice.to.have|future|low.priority|stretch`)
	bulletItem      = regexp.MustCompile(`^[-*]\s+\*?\*?(.+?)\*?\*?\s*(?:[:\-]|$)`)
	boldMarkers     = regexp.MustCompile(`\*+`)
)

// ExtractMVPFeatures pulls the MVP feature list out of a compiled
// document's feature-specification section. Parsing is heuristic: the
// checklist only needs a usable starting point, so at most 7 features
// are returned and a document without a recognizable section yields
// none.
func ExtractMVPFeatures(documentContent string) []string {
	var features []string
	inFeatureSection := false
	inDeferred := false

	for _, line := range strings.Split(documentContent, "\n") {
		trimmed := strings.TrimSpace(line)

		if featureSection.MatchString(trimmed) {
			inFeatureSection = true
			inDeferred = false
			continue
		}
		if inFeatureSection && numberedSection.MatchString(trimmed) {
			break
		}
		if inFeatureSection && deferredHeading.MatchString(trimmed) {
			inDeferred = true
			continue
		}
		if inFeatureSection && mvpHeading.MatchString(trimmed) {
			inDeferred = false
			continue
		}
		if !inFeatureSection || inDeferred {
			continue
		}
		match := bulletItem.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		feature := strings.TrimSpace(boldMarkers.ReplaceAllString(match[1], ""))
		if len(feature) > 3 && len(feature) < 200 {
			features = append(features, feature)
		}
	}

	if len(features) > maxChecklistFeatures {
		features = features[:maxChecklistFeatures]
	}
	return features
}
