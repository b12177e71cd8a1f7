package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IshaanNene/NewsHarvest/internal/ai"
)

// insightChars bounds how much body text goes into the prompt.
const insightChars = 40000

const insightSystem = `You are an expert at analyzing news articles and extracting key information. Return only valid JSON with main_ideas and tags arrays.`

const insightTask = `Your task:
1. Extract 3-5 main ideas from the article. Each main idea should be a concise sentence (10-20 words) that captures a key point or theme.
2. Extract 5-10 relevant tags. Tags should be:
   - Single words or short phrases (1-3 words)
   - Relevant to the article's topics, technologies, industries, or themes
   - Lowercase, with multi-word tags joined by hyphens (e.g. "artificial-intelligence", "cloud-computing")
   - Technology names, company names, industry terms and topic keywords

Return a JSON object with this structure:
{
  "main_ideas": ["First main idea", "Second main idea", "Third main idea"],
  "tags": ["tag1", "tag2", "tag3"]
}

Return ONLY valid JSON. No explanations, no markdown, just the JSON object.`

// Insights is what the LLM extracts from one article.
type Insights struct {
	MainIdeas []string `json:"main_ideas"`
	Tags      []string `json:"tags"`
}

// Empty reports whether nothing was extracted.
func (in Insights) Empty() bool { return len(in.MainIdeas) == 0 && len(in.Tags) == 0 }

// Insights asks the LLM for main ideas and tags. A reply that is not the
// expected JSON yields empty lists, not an error.
func (e *Enricher) Insights(ctx context.Context, title, description, text string) (Insights, error) {
	if e.llm == nil {
		return Insights{}, nil
	}
	out, err := e.llm.Generate(ctx, insightSystem, buildInsightPrompt(title, description, text))
	if err != nil {
		return Insights{}, fmt.Errorf("llm: %w", err)
	}
	in, err := ParseInsights(out)
	if err != nil {
		e.logger.Warn("unparseable llm response", "title", title, "response", truncate(out, 200), "error", err)
		return Insights{}, nil
	}
	return in, nil
}

func buildInsightPrompt(title, description, text string) string {
	content := strings.Join(strings.Fields(text), " ")
	if r := []rune(content); len(r) > insightChars {
		content = string(r[:insightChars])
	}
	if strings.TrimSpace(description) == "" {
		description = "N/A"
	}

	var b strings.Builder
	b.WriteString("You are analyzing a news article to extract its main ideas and relevant tags.\n\n")
	fmt.Fprintf(&b, "Article Title: %s\n", title)
	fmt.Fprintf(&b, "Article Description: %s\n\n", description)
	fmt.Fprintf(&b, "Article Content:\n%s\n\n", content)
	b.WriteString(insightTask)
	return b.String()
}

// ParseInsights decodes the LLM reply, dropping blank ideas and
// normalizing tags to lowercase hyphenated form without duplicates.
func ParseInsights(raw string) (Insights, error) {
	var in Insights
	if err := json.Unmarshal([]byte(ai.StripCodeFences(raw)), &in); err != nil {
		return Insights{}, err
	}

	ideas := make([]string, 0, len(in.MainIdeas))
	for _, idea := range in.MainIdeas {
		if idea = strings.TrimSpace(idea); idea != "" {
			ideas = append(ideas, idea)
		}
	}

	seen := make(map[string]bool, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.Join(strings.Fields(strings.ToLower(tag)), "-")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return Insights{MainIdeas: ideas, Tags: tags}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
