package llm

import "fmt"

// ScoringSystemPrompt instructs the model to score a CV against a job
// description and return the strict ATS JSON contract. The validator
// rejects anything that drifts from this shape.
const ScoringSystemPrompt = `You are an ATS (Applicant Tracking System) simulator.
Compare the CV to the job description and score their compatibility.
Return ONLY valid JSON, no markdown fences, with this exact structure:
{
  "atsScore": 0-100,
  "scoreBreakdown": {"technicalSkills": 0-100, "experienceRelevance": 0-100, "additionalSkills": 0-100, "formatting": 0-100},
  "matchedKeywords": ["..."],
  "missingKeywords": [{"keyword": "...", "priority": "high|medium|low", "context": "why it matters"}],
  "matchedSkills": ["..."],
  "missingSkills": [{"skill": "...", "priority": "high|medium|low", "context": "why it matters"}],
  "formattingIssues": ["..."],
  "recommendations": ["..."],
  "sectionScores": {"experience": 0-100, "skills": 0-100, "education": 0-100},
  "skillMatchPercentage": 0-100,
  "gapAnalysis": {"strongAlignments": ["..."], "keyGaps": ["..."]}
}
All numeric values MUST be within 0 and 100. Do not invent fields.`

// TailoringSystemPrompt instructs the model to adapt the base CV to one
// job and to report any data the CV lacks instead of inventing it.
const TailoringSystemPrompt = `You are an HR consultant. Adapt the CV for the job:
- Highlight relevant skills first
- Emphasize relevant experience
- DO NOT add anything that isn't there
- Keep facts, change emphasis
- If the job requires data the CV does not contain (e.g. salary
  expectation, earliest start date), DO NOT invent it: list the field
  names under "missingFields" and leave the rest complete.
Return ONLY valid JSON, no markdown fences:
{
  "cv": { ...tailored CV as structured JSON... },
  "coverLetter": "full cover letter text",
  "missingFields": ["Field Name", ...]
}`

// ChatSystemPrompt constrains answers to one job posting's text.
const ChatSystemPrompt = `You answer questions about ONE job posting.
Use ONLY the posting text provided below as your source. If the posting
does not contain the answer, say so; never answer from general
knowledge or other jobs.`

// BuildScoringPrompt assembles the user prompt for an ATS scan.
func BuildScoringPrompt(cvJSON, jobText string) string {
	return fmt.Sprintf("## Job Description:\n%s\n\n## CV (JSON):\n%s", jobText, cvJSON)
}

// BuildTailoringPrompt assembles the user prompt for CV tailoring.
// userInputs carries values the user supplied for previously missing
// fields; it may be empty.
func BuildTailoringPrompt(baseCV, jobText, language, userInputs string) string {
	prompt := fmt.Sprintf("## Job (language: %s):\n%s\n\n## Base CV:\n%s", language, jobText, baseCV)
	if userInputs != "" {
		prompt += "\n\n## User-provided data for missing fields:\n" + userInputs
	}
	return prompt
}

// BuildChatPrompt assembles the grounded chat user prompt.
func BuildChatPrompt(jobText, question string) string {
	return fmt.Sprintf("## Job posting:\n%s\n\n## Question:\n%s", jobText, question)
}
