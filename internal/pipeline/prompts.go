package pipeline

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/extract.md
	extractPromptTemplate string
	//go:embed prompts/score.md
	scorePromptTemplate string
	//go:embed prompts/letter.md
	letterPromptTemplate string
	//go:embed prompts/transcribe.md
	transcribePromptTemplate string
)

func buildExtractPrompt(jobTitle string) string {
	return renderPrompt(extractPromptTemplate, map[string]string{
		"{{JOB_TITLE}}": jobTitle,
	})
}

func buildScorePrompt(resumeText, jobDescription string) string {
	return renderPrompt(scorePromptTemplate, map[string]string{
		"{{RESUME_TEXT}}":     resumeText,
		"{{JOB_DESCRIPTION}}": jobDescription,
	})
}

func buildLetterPrompt(jobTitle string, tone Tone, resumeText, jobDescription string) string {
	return renderPrompt(letterPromptTemplate, map[string]string{
		"{{JOB_TITLE}}":       jobTitle,
		"{{TONE}}":            string(tone),
		"{{RESUME_TEXT}}":     resumeText,
		"{{JOB_DESCRIPTION}}": jobDescription,
	})
}

func buildTranscribePrompt(jobTitle string) string {
	return renderPrompt(transcribePromptTemplate, map[string]string{
		"{{JOB_TITLE}}": jobTitle,
	})
}

// renderPrompt substitutes placeholders in a single pass so inserted text is
// never scanned for further placeholders.
func renderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for placeholder, value := range values {
		pairs = append(pairs, placeholder, strings.TrimSpace(value))
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
