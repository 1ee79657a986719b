package generator

import (
	"strings"

	"github.com/applypilot/applypilot/internal/models"
)

// InferInputType guesses the UI control for a missing field from its
// name. The model reports field names as free text ("Earliest Start
// Date", "Salary Expectation"), so this is heuristic by nature; "text"
// is the safe fallback.
func InferInputType(name string) models.InputType {
	n := strings.ToLower(name)

	switch {
	case strings.Contains(n, "date") ||
		strings.Contains(n, "start") ||
		strings.Contains(n, "available"):
		return models.InputTypeDate

	case strings.Contains(n, "salary") ||
		strings.Contains(n, "compensation") ||
		strings.Contains(n, "years") ||
		strings.Contains(n, "amount"):
		return models.InputTypeNumber

	case strings.Contains(n, "motivation") ||
		strings.Contains(n, "summary") ||
		strings.Contains(n, "why") ||
		strings.Contains(n, "describe"):
		return models.InputTypeTextarea

	default:
		return models.InputTypeText
	}
}

// BuildRequiredInputs maps the model's missing-field names onto typed
// input descriptors, dropping blank names and duplicates.
func BuildRequiredInputs(names []string) []models.RequiredInput {
	seen := make(map[string]bool, len(names))
	inputs := make([]models.RequiredInput, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		inputs = append(inputs, models.RequiredInput{
			Name: name,
			Type: InferInputType(name),
		})
	}
	return inputs
}

// FormatUserInputs renders submitted input values as prompt lines,
// following the order of the required inputs they answer.
func FormatUserInputs(required []models.RequiredInput, values map[string]string) string {
	var b strings.Builder
	for _, in := range required {
		v, ok := values[in.Name]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(in.Name)
		b.WriteString(": ")
		b.WriteString(v)
	}
	return b.String()
}

// MissingInputNames returns the required inputs that values does not
// answer.
func MissingInputNames(required []models.RequiredInput, values map[string]string) []string {
	var missing []string
	for _, in := range required {
		if v, ok := values[in.Name]; !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, in.Name)
		}
	}
	return missing
}
