package summary

import "strings"

const defaultSummarySystem = `You are a helpful assistant that creates concise summaries of text transcripts.
Your summary should:
- Be approximately 300 words or less
- Capture the main points and key insights
- Use simple plain text (no markdown formatting, no bold, no asterisks, no bullet points)
- Use normal sentences and paragraphs
- Be engaging and informative
- Focus on the actual content provided in the text
- Start directly with the summary, do not include any introductory phrases`

var defaultCategories = []string{
	"technology",
	"education",
	"entertainment",
	"science",
	"health & fitness",
	"business",
	"programming",
	"gaming",
	"music",
	"news",
	"politics",
	"travel",
	"food & cooking",
	"art & design",
	"sports",
	"finance",
	"productivity",
	"lifestyle",
	"tutorials",
	"reviews",
	"general",
}

const categorySystemHeader = `You are a content categorization assistant.
Given a title and summary text, determine the most appropriate category.
Respond with ONLY the single category name in lowercase, no other text or explanation.

Choose from these categories:`

// categorySystemPrompt renders the system prompt with the suggested
// category list. The list only guides the model; any free-text answer
// becomes a category.
func categorySystemPrompt(categories []string) string {
	if len(categories) == 0 {
		categories = defaultCategories
	}
	var b strings.Builder
	b.WriteString(categorySystemHeader)
	for _, c := range categories {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}
