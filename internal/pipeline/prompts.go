package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jobscout/jobscout/internal/model"
)

const (
	searchSystem   = "You are a job search assistant. You find real, currently open job postings and report them as structured JSON."
	extractSystem  = "You are a careful text extraction assistant. You isolate the text of one job posting from a scraped web page."
	filterSystem   = "You are a job search assistant helping a candidate triage leads."
	generateSystem = "You are a job search assistant who writes effective web search queries."

	// maxPageChars caps how much scraped page text goes into the
	// extraction prompt.
	maxPageChars = 20000
	// maxSummaryChars caps one lead's description inside the filter
	// prompt.
	maxSummaryChars = 200
)

func searchPrompt(query string) string {
	var b strings.Builder
	b.WriteString("Search the web for currently open job postings matching this query:\n\n")
	b.WriteString(query + "\n")
	b.WriteString("\n=== GUIDELINES ===\n")
	b.WriteString("1. Prefer postings published within the last few days\n")
	b.WriteString("2. Only include real postings with a working link to the original ad\n")
	b.WriteString("3. Skip aggregator duplicates when the original posting is reachable\n")
	b.WriteString("4. If the ad names a contact person for applications, include it as addressee\n")
	b.WriteString("\n=== OUTPUT FORMAT ===\n")
	b.WriteString("Return ONLY a JSON array, no other text. One object per posting:\n")
	b.WriteString(`[{"company": "...", "title": "...", "link": "...", "location": "...", "description": "...", "addressee": "..."}]` + "\n")
	b.WriteString("Use an empty string for unknown fields. Return [] when nothing fits.\n")
	return b.String()
}

func extractPrompt(lead model.Lead, page string) string {
	var b strings.Builder
	b.WriteString("Below is the scraped text of a web page that should contain one job posting.\n\n")
	b.WriteString("=== POSTING ===\n")
	b.WriteString(fmt.Sprintf("Company: %s\n", lead.Company))
	b.WriteString(fmt.Sprintf("Title: %s\n", lead.Title))
	if lead.Location != "" {
		b.WriteString(fmt.Sprintf("Location: %s\n", lead.Location))
	}
	b.WriteString("\n=== PAGE ===\n")
	b.WriteString(truncate(page, maxPageChars))
	b.WriteString("\n\n=== TASK ===\n")
	b.WriteString("Extract the full text of this job posting in its original language.\n")
	b.WriteString("Keep every detail of the role, requirements, benefits and application instructions.\n")
	b.WriteString("Drop navigation, cookie banners, footers and unrelated postings.\n")
	b.WriteString("Return ONLY the posting text, no commentary.\n")
	return b.String()
}

func filterPrompt(batch []candidate, background string) string {
	var b strings.Builder
	b.WriteString("=== CANDIDATE BACKGROUND ===\n")
	b.WriteString(background + "\n")
	b.WriteString("\n=== LEADS ===\n")
	for i, c := range batch {
		b.WriteString(fmt.Sprintf("%d. %s | %s | %s | %s\n",
			i, c.lead.Company, c.lead.Title, c.lead.Location, truncate(c.lead.Description, maxSummaryChars)))
	}
	b.WriteString("\n=== TASK ===\n")
	b.WriteString("Decide which leads are worth this candidate's application given their background.\n")
	b.WriteString("Judge fit of role, seniority and location. When in doubt, keep the lead.\n")
	b.WriteString("Return ONLY a JSON array of the indices to keep, for example [0, 2, 3].\n")
	b.WriteString("Return [] if none fit.\n")
	return b.String()
}

func generatePrompt(background string, count int) string {
	var b strings.Builder
	b.WriteString("=== CANDIDATE BACKGROUND ===\n")
	b.WriteString(background + "\n")
	b.WriteString("\n=== TASK ===\n")
	b.WriteString(fmt.Sprintf("Write %d web search queries for finding job postings this candidate should apply to.\n", count))
	b.WriteString("Each query targets a distinct angle: role names, stacks, seniority, locations or remote.\n")
	b.WriteString("Queries must work well in a search engine, so keep them short and concrete.\n")
	b.WriteString("Return ONLY a JSON array of strings.\n")
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
