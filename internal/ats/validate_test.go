package ats

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalValid = `{
	"atsScore": 72,
	"matchedKeywords": ["go", "postgres"],
	"missingKeywords": [{"keyword": "kubernetes", "priority": "high", "context": "listed as a must-have"}],
	"matchedSkills": ["backend"],
	"missingSkills": [{"skill": "terraform", "priority": "low", "context": "nice to have"}],
	"formattingIssues": [],
	"recommendations": ["add kubernetes experience"]
}`

func TestValidateMinimal(t *testing.T) {
	resp, err := Validate(minimalValid)
	require.NoError(t, err)

	assert.Equal(t, 72.0, resp.ATSScore)
	assert.Equal(t, []string{"go", "postgres"}, resp.MatchedKeywords)
	require.Len(t, resp.MissingKeywords, 1)
	assert.Equal(t, "kubernetes", resp.MissingKeywords[0].Value)
	assert.Equal(t, PriorityHigh, resp.MissingKeywords[0].Priority)
	assert.Nil(t, resp.ScoreBreakdown)
	assert.Nil(t, resp.SkillMatchPercentage)
}

func TestValidateStripsMarkdownFences(t *testing.T) {
	resp, err := Validate("```json\n" + minimalValid + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 72.0, resp.ATSScore)
}

func TestValidateLegacyFlatLists(t *testing.T) {
	raw := `{
		"atsScore": 50,
		"matchedKeywords": [],
		"missingKeywords": ["docker", "aws"],
		"matchedSkills": [],
		"missingSkills": ["ci/cd"],
		"formattingIssues": [],
		"recommendations": []
	}`

	resp, err := Validate(raw)
	require.NoError(t, err)

	require.Len(t, resp.MissingKeywords, 2)
	for _, item := range resp.MissingKeywords {
		assert.Equal(t, PriorityMedium, item.Priority)
		assert.NotEmpty(t, item.Context)
	}
	assert.Equal(t, "docker", resp.MissingKeywords[0].Value)

	require.Len(t, resp.MissingSkills, 1)
	assert.Equal(t, "ci/cd", resp.MissingSkills[0].Value)
	assert.Equal(t, PriorityMedium, resp.MissingSkills[0].Priority)
	assert.NotEmpty(t, resp.MissingSkills[0].Context)
}

func TestValidateObjectShapeDefaults(t *testing.T) {
	raw := `{
		"atsScore": 50,
		"matchedKeywords": [],
		"missingKeywords": [{"keyword": "sql"}],
		"matchedSkills": [],
		"missingSkills": [],
		"formattingIssues": [],
		"recommendations": []
	}`

	resp, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, resp.MissingKeywords, 1)
	assert.Equal(t, PriorityMedium, resp.MissingKeywords[0].Priority)
	assert.NotEmpty(t, resp.MissingKeywords[0].Context)
}

func TestValidateMissingRequiredField(t *testing.T) {
	raw := `{"atsScore": 50, "matchedKeywords": []}`

	_, err := Validate(raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required field missing", verr.Reason)
}

func TestValidateScoreOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		patch func(m map[string]any)
		field string
	}{
		{"atsScore above 100", func(m map[string]any) { m["atsScore"] = 105 }, "atsScore"},
		{"atsScore negative", func(m map[string]any) { m["atsScore"] = -1 }, "atsScore"},
		{"skillMatchPercentage above 100", func(m map[string]any) { m["skillMatchPercentage"] = 130 }, "skillMatchPercentage"},
		{"breakdown subfield out of range", func(m map[string]any) {
			m["scoreBreakdown"] = map[string]any{
				"technicalSkills": 120, "experienceRelevance": 50,
				"additionalSkills": 50, "formatting": 50,
			}
		}, "scoreBreakdown.technicalSkills"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(minimalValid), &m))
			tc.patch(m)
			raw, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = Validate(string(raw))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateUnknownPriorityRejected(t *testing.T) {
	raw := `{
		"atsScore": 50,
		"matchedKeywords": [],
		"missingKeywords": [{"keyword": "sql", "priority": "urgent"}],
		"matchedSkills": [],
		"missingSkills": [],
		"formattingIssues": [],
		"recommendations": []
	}`

	_, err := Validate(raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "missingKeywords[0].priority", verr.Field)
}

func TestValidateScoreBreakdownAllOrNothing(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(minimalValid), &m))
	m["scoreBreakdown"] = map[string]any{"technicalSkills": 80}
	raw, _ := json.Marshal(m)

	_, err := Validate(string(raw))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestValidateExtraFieldsPassThrough(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(minimalValid), &m))
	m["industrySpecificKeywords"] = []string{"fintech"}
	m["readabilityScore"] = 88
	raw, _ := json.Marshal(m)

	resp, err := Validate(string(raw))
	require.NoError(t, err)
	assert.Contains(t, resp.Extra, "industrySpecificKeywords")
	assert.Contains(t, resp.Extra, "readabilityScore")
}

func TestValidateNotJSON(t *testing.T) {
	_, err := Validate("I am sorry, I cannot help with that.")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}
