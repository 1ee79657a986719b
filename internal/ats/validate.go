package ats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/applypilot/applypilot/internal/models"
)

// knownOptionalFields are modeled optional keys; anything else that is
// not required ends up in CanonicalResponse.Extra untouched.
var knownOptionalFields = map[string]bool{
	"scoreBreakdown":       true,
	"sectionScores":        true,
	"skillMatchPercentage": true,
	"gapAnalysis":          true,
}

// CleanResponse removes markdown code blocks if present.
// LLMs sometimes wrap code in ```json ... ```.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Validate checks an untrusted LLM completion against the scoring
// schema and normalizes it to the canonical internal shape.
//
// The payload is adversarial: fields may be missing, renamed, or shaped
// differently across model versions. Required fields are all-or-nothing;
// on any failure a *ValidationError is returned and no partial object.
// Out-of-range scores are failures, not clamped - a value outside
// [0,100] means the model deviated from the prompt contract.
func Validate(raw string) (*CanonicalResponse, error) {
	cleaned := CleanResponse(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, invalid("", "not a JSON object: %v", err)
	}

	for _, field := range requiredFields {
		if _, ok := payload[field]; !ok {
			return nil, invalid(field, "required field missing")
		}
	}

	resp := &CanonicalResponse{}

	score, err := boundedScore(payload["atsScore"], "atsScore")
	if err != nil {
		return nil, err
	}
	resp.ATSScore = score

	if resp.MatchedKeywords, err = stringList(payload["matchedKeywords"], "matchedKeywords"); err != nil {
		return nil, err
	}
	if resp.MatchedSkills, err = stringList(payload["matchedSkills"], "matchedSkills"); err != nil {
		return nil, err
	}
	if resp.FormattingIssues, err = stringList(payload["formattingIssues"], "formattingIssues"); err != nil {
		return nil, err
	}
	if resp.Recommendations, err = stringList(payload["recommendations"], "recommendations"); err != nil {
		return nil, err
	}

	if resp.MissingKeywords, err = prioritizedList(payload["missingKeywords"], "missingKeywords", "keyword"); err != nil {
		return nil, err
	}
	if resp.MissingSkills, err = prioritizedList(payload["missingSkills"], "missingSkills", "skill"); err != nil {
		return nil, err
	}

	if rawBD, ok := payload["scoreBreakdown"]; ok {
		bd, err := scoreBreakdown(rawBD)
		if err != nil {
			return nil, err
		}
		resp.ScoreBreakdown = bd
	}

	if rawSS, ok := payload["sectionScores"]; ok {
		var scores map[string]float64
		if err := json.Unmarshal(rawSS, &scores); err != nil {
			return nil, invalid("sectionScores", "expected object of numbers")
		}
		for section, v := range scores {
			if v < 0 || v > 100 {
				return nil, invalid("sectionScores."+section, "score %v outside [0,100]", v)
			}
		}
		resp.SectionScores = scores
	}

	if rawPct, ok := payload["skillMatchPercentage"]; ok {
		pct, err := boundedScore(rawPct, "skillMatchPercentage")
		if err != nil {
			return nil, err
		}
		resp.SkillMatchPercentage = &pct
	}

	if rawGap, ok := payload["gapAnalysis"]; ok {
		var gap struct {
			StrongAlignments []string `json:"strongAlignments"`
			KeyGaps          []string `json:"keyGaps"`
		}
		if err := json.Unmarshal(rawGap, &gap); err != nil {
			return nil, invalid("gapAnalysis", "expected {strongAlignments, keyGaps} string lists")
		}
		resp.GapAnalysis = &models.GapAnalysis{
			StrongAlignments: gap.StrongAlignments,
			KeyGaps:          gap.KeyGaps,
		}
	}

	// unmodeled optional fields pass through untouched
	for key, val := range payload {
		if isRequiredField(key) || knownOptionalFields[key] {
			continue
		}
		if resp.Extra == nil {
			resp.Extra = make(map[string]json.RawMessage)
		}
		resp.Extra[key] = val
	}

	return resp, nil
}

func isRequiredField(key string) bool {
	for _, f := range requiredFields {
		if f == key {
			return true
		}
	}
	return false
}

// boundedScore decodes a number and enforces the closed [0,100] interval.
func boundedScore(raw json.RawMessage, field string) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, invalid(field, "expected a number")
	}
	if v < 0 || v > 100 {
		return 0, invalid(field, "score %v outside [0,100]", v)
	}
	return v, nil
}

func stringList(raw json.RawMessage, field string) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalid(field, "expected a list of strings")
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// prioritizedList normalizes the two historical shapes of
// missingKeywords/missingSkills. Legacy models returned flat string
// lists; newer ones return {keyword|skill, priority, context} objects.
// The shape is detected from the first element and both normalize to
// the prioritized-object shape. Converted legacy strings get priority
// "medium" and a generated context - a deliberate, auditable lossy
// upgrade, not silent data loss.
func prioritizedList(raw json.RawMessage, field, valueKey string) ([]models.PrioritizedItem, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, invalid(field, "expected a list")
	}

	items := make([]models.PrioritizedItem, 0, len(elems))
	for i, elem := range elems {
		path := fmt.Sprintf("%s[%d]", field, i)

		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			// legacy flat-string shape
			items = append(items, models.PrioritizedItem{
				Value:    s,
				Priority: PriorityMedium,
				Context:  fmt.Sprintf("Reported as missing; the model gave no priority detail for %q.", s),
			})
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil {
			return nil, invalid(path, "expected a string or an object")
		}

		value, err := objString(obj, valueKey)
		if err != nil || value == "" {
			return nil, invalid(path+"."+valueKey, "required string missing")
		}

		priority := PriorityMedium
		if rawP, ok := obj["priority"]; ok {
			p, err := rawString(rawP)
			if err != nil {
				return nil, invalid(path+".priority", "expected a string")
			}
			switch p {
			case PriorityHigh, PriorityMedium, PriorityLow:
				priority = p
			default:
				return nil, invalid(path+".priority", "unknown priority %q", p)
			}
		}

		context := ""
		if rawC, ok := obj["context"]; ok {
			if context, err = rawString(rawC); err != nil {
				return nil, invalid(path+".context", "expected a string")
			}
		}
		if context == "" {
			context = fmt.Sprintf("Reported as missing; the model gave no detail for %q.", value)
		}

		items = append(items, models.PrioritizedItem{Value: value, Priority: priority, Context: context})
	}

	return items, nil
}

func scoreBreakdown(raw json.RawMessage) (*models.ScoreBreakdown, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, invalid("scoreBreakdown", "expected an object")
	}

	fields := []string{"technicalSkills", "experienceRelevance", "additionalSkills", "formatting"}
	values := make(map[string]float64, len(fields))
	for _, f := range fields {
		rawV, ok := obj[f]
		if !ok {
			return nil, invalid("scoreBreakdown."+f, "required field missing")
		}
		v, err := boundedScore(rawV, "scoreBreakdown."+f)
		if err != nil {
			return nil, err
		}
		values[f] = v
	}

	return &models.ScoreBreakdown{
		TechnicalSkills:     values["technicalSkills"],
		ExperienceRelevance: values["experienceRelevance"],
		AdditionalSkills:    values["additionalSkills"],
		Formatting:          values["formatting"],
	}, nil
}

func objString(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return rawString(raw)
}

func rawString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
