// Package sources derives cited web pages from search tool output.
package sources

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/model"
)

// UnknownTitle is used when a JSON result carries a url but no title.
const UnknownTitle = "Unknown Source"

var (
	titleMarker = regexp.MustCompile(`(?m)^--- SOURCE \d+: (.*) ---[ \t\r]*$`)
	urlMarker   = regexp.MustCompile(`(?m)^URL: (\S+)[ \t\r]*$`)
)

type jsonResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Parse reads sources out of a single search tool output. It accepts a JSON
// array of {title,url} objects, a JSON object with a "results" array, or the
// formatted text protocol where each "--- SOURCE N: <title> ---" line is
// paired with the first "URL: <url>" line of its block. Malformed input
// yields nil. Titles are returned as found, possibly empty.
func Parse(content string) []model.Source {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var results []jsonResult
		if err := json.Unmarshal([]byte(trimmed), &results); err != nil {
			return nil
		}
		return fromJSON(results)
	case '{':
		var wrapped struct {
			Results []jsonResult `json:"results"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil
		}
		return fromJSON(wrapped.Results)
	}

	// Each title owns the text up to the next title; its url is the first
	// URL line of that block, so urls quoted inside summaries never shift.
	titles := titleMarker.FindAllStringSubmatchIndex(content, -1)
	out := make([]model.Source, 0, len(titles))
	for i, loc := range titles {
		end := len(content)
		if i+1 < len(titles) {
			end = titles[i+1][0]
		}
		m := urlMarker.FindStringSubmatch(content[loc[1]:end])
		if m == nil {
			continue
		}
		out = append(out, model.Source{
			Title: strings.TrimSpace(content[loc[2]:loc[3]]),
			URL:   strings.TrimSpace(m[1]),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fromJSON(results []jsonResult) []model.Source {
	out := make([]model.Source, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, model.Source{Title: r.Title, URL: r.URL})
	}
	return out
}

// Extract scans tool-result messages produced by toolName and returns their
// sources deduplicated by url. The last title seen for a url wins; order is the
// order in which each url first appeared.
func Extract(messages []*schema.Message, toolName string) []model.Source {
	var all []model.Source
	for _, m := range messages {
		if m == nil || m.Role != schema.Tool || m.ToolName != toolName {
			continue
		}
		all = append(all, Parse(m.Content)...)
	}
	return Dedupe(all)
}

// Dedupe keeps one entry per url with last-write-wins titles in first-appearance order.
func Dedupe(in []model.Source) []model.Source {
	if len(in) == 0 {
		return []model.Source{}
	}
	index := make(map[string]int, len(in))
	out := make([]model.Source, 0, len(in))
	for _, s := range in {
		if s.Title == "" {
			s.Title = UnknownTitle
		}
		if i, ok := index[s.URL]; ok {
			out[i].Title = s.Title
			continue
		}
		index[s.URL] = len(out)
		out = append(out, s)
	}
	return out
}
