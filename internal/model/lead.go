package model

import "strings"

// Lead is one raw search result before it becomes a Job. Leads carry only
// what the search surface returned; dedup, enrichment and filtering decide
// what is worth keeping. The link is the sole dedup key, so a lead without
// one is untrackable and gets dropped.
type Lead struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Addressee   string `json:"addressee,omitempty"`
}

// Normalize trims surrounding whitespace from every field and returns the
// result. Search output is model-generated text and arrives ragged.
func (l Lead) Normalize() Lead {
	l.Company = strings.TrimSpace(l.Company)
	l.Title = strings.TrimSpace(l.Title)
	l.Link = strings.TrimSpace(l.Link)
	l.Location = strings.TrimSpace(l.Location)
	l.Description = strings.TrimSpace(l.Description)
	l.Addressee = strings.TrimSpace(l.Addressee)
	return l
}
