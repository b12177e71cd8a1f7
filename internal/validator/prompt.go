package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

// DefaultPreviewChars bounds how much body text goes into a prompt.
const DefaultPreviewChars = 5000

const systemPrompt = `You are an expert at validating scraped article data. Check ONLY for 8 specific issues: 1) Title doesn't match content, 2) No title, 3) No date (future dates are OK), 4) Blank description (acceptable, don't flag), 5) No main ideas, 6) No tags, 7) No original text, 8) Error messages in original text. Do NOT check for any other issues. Return only valid JSON with status (0 or 1) and comment fields.`

const checks = `IMPORTANT: Check ONLY for these 8 specific issues. Do NOT check for any other issues (like date format, URL validity, etc.).

Mark status=0 if ANY of issues 1, 2, 3, 5, 6, 7 or 8 are found:

1. Title doesn't match the article content: the title is generic (like "Latest news", "News", "Article") or does not reflect what the original text is about.
2. No title at all: the title is empty or whitespace.
3. No date: the date is empty or whitespace. Future dates are acceptable.
4. Description may be blank: this is acceptable and must NOT cause status=0. Mention it only if other issues are found.
5. No main ideas: the main ideas list is empty.
6. No tags: the tags list is empty.
7. No original text: the original text is empty or shorter than 100 characters.
8. Original text contains error messages or irrelevant content such as "404 Not Found", "Access Denied", "Page not found", or other signs that scraping failed.

Return a JSON object with this structure:
{
  "status": 1 or 0,
  "comment": "List all issues found (1-8), or an empty string if everything is good."
}

Return ONLY valid JSON. No explanations, no markdown.`

// BuildPrompt renders the user prompt for one row. Body text is cut to
// previewChars runes; the full length is reported separately.
func BuildPrompt(row *storage.ArticleRow, previewChars int) string {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	preview := row.OriginalText
	if r := []rune(preview); len(r) > previewChars {
		preview = string(r[:previewChars])
	}

	var b strings.Builder
	b.WriteString("You are validating scraped article data. Check if all fields were scraped correctly and completely.\n\n")
	b.WriteString("Article Data:\n")
	fmt.Fprintf(&b, "- Title: %s\n", row.Title)
	fmt.Fprintf(&b, "- Date: %s\n", row.Date)
	fmt.Fprintf(&b, "- Link: %s\n", row.Link)
	fmt.Fprintf(&b, "- Description: %s\n", row.Description)
	fmt.Fprintf(&b, "- Source: %s\n", row.Source)
	fmt.Fprintf(&b, "- Main Ideas: %s\n", listOrNone(row.MainIdeas))
	fmt.Fprintf(&b, "- Tags: %s\n", listOrNone(row.Tags))
	fmt.Fprintf(&b, "- Original Text (first %d chars): %s\n", previewChars, orNone(preview))
	fmt.Fprintf(&b, "- Original Text Full Length: %d characters\n\n", len([]rune(row.OriginalText)))
	b.WriteString(checks)
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None (empty array)"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return strings.Join(items, ", ")
	}
	return string(data)
}

func orNone(s string) string {
	if s == "" {
		return "None (empty)"
	}
	return s
}
