package src

import (
	"fmt"
	"sort"
	"strings"
)

// PlanSystemPrompt fixes the planner's output contract. Field names here are
// load-bearing: normalizePlan decodes exactly this shape.
const PlanSystemPrompt = `You are an expert code analyzer and refactoring assistant. Analyze the user's codebase and propose specific modifications.

Return ONLY a JSON object (no markdown, no code blocks) with this structure:

{
  "title": "Brief title of modifications",
  "description": "What will be changed and why",
  "proposedChanges": [
    {
      "filePath": "exact/file/path.ts",
      "action": "modify",
      "description": "What this modification does",
      "reasoning": "Why this change improves the code",
      "originalContent": "// Copy the EXACT original file content here",
      "proposedContent": "// Complete modified file content with all changes applied",
      "changes": [
        {
          "lineNumber": 15,
          "type": "modify",
          "description": "Changed function signature to async"
        }
      ]
    }
  ]
}

RULES:
1. Only modify files that exist in the codebase
2. proposedContent must be COMPLETE working code
3. Keep unchanged parts of the file intact
4. Be specific about what changed and why
5. Maintain original code style and formatting`

// SuggestionsSystemPrompt fixes the contract for the lighter-weight
// suggestions path. Descriptions only, no code.
const SuggestionsSystemPrompt = `You are an expert code analyzer. Analyze the codebase and suggest improvements.

Return ONLY a JSON array (no markdown, no code blocks) with this structure:

[
  {
    "id": "suggestion-1",
    "title": "Brief title",
    "description": "Detailed description of what needs to be changed",
    "impact": "The impact of this change (e.g., 'Improves performance by 30%')",
    "priority": "high" | "medium" | "low"
  }
]

RULES:
1. Provide ONLY suggestions and descriptions - NO CODE
2. Focus on specific improvements
3. Set realistic priorities
4. Each suggestion should be actionable`

// buildFilesContext serializes the corpus for a prompt, one delimited block
// per file.
func buildFilesContext(files []UploadedFile) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n=== CURRENT CODEBASE ===\n")
	for _, f := range files {
		fmt.Fprintf(&b, "\n--- File: %s ---\n%s\n", f.Path, f.Content)
	}
	return b.String()
}

// buildReviewPrompt asks for the structured score/feedback/readiness
// judgement over the applied content, with the original files as context.
func buildReviewPrompt(appliedCode []string, originals map[string]string) string {
	var b strings.Builder
	b.WriteString("Review the following modified code for quality, best practices, and potential issues:\n\n")
	b.WriteString(strings.Join(appliedCode, "\n\n---\n\n"))
	b.WriteString("\n\nOriginal files context:\n")
	paths := make([]string, 0, len(originals))
	for p := range originals {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&b, "\n--- File: %s ---\n%s", p, originals[p])
	}
	b.WriteString(`

Provide a structured review with:
1. Overall quality score (1-10)
2. Key strengths
3. Areas for improvement
4. Any critical issues
5. Is the code ready for production?

Format your response as JSON:
{
  "score": number,
  "feedback": ["feedback 1", "feedback 2", ...],
  "readyToDownload": boolean
}`)
	return b.String()
}

// buildCodePrompt frames a single suggestion for the code generation role.
func buildCodePrompt(suggestion Suggestion, task string, files []UploadedFile) string {
	var b strings.Builder
	b.WriteString("Implement the following improvement as complete code.\n\n")
	fmt.Fprintf(&b, "Improvement: %s\n%s\n", suggestion.Title, suggestion.Description)
	if task != "" {
		fmt.Fprintf(&b, "\nOverall task: %s\n", task)
	}
	b.WriteString(buildFilesContext(files))
	b.WriteString("\nReturn ONLY the complete code, inside a single markdown code block.")
	return b.String()
}
