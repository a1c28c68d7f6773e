package literature

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidPaper is returned by Paper.Validate.
var ErrInvalidPaper = errors.New("invalid paper")

// Author is a single author as displayed to the user.
type Author struct {
	Name string `json:"name"`
}

// Paper is one citation returned by the literature index. Link is the
// canonical URL and doubles as the paper's key within a fetch batch.
type Paper struct {
	Title         string   `json:"title"`
	Link          string   `json:"link"`
	Authors       []Author `json:"authors"`
	PublishedDate string   `json:"published_date"`
	Abstract      string   `json:"abstract,omitempty"`
}

// Validate checks the shape of the record.
func (p Paper) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidPaper)
	}
	if p.Link == "" {
		return fmt.Errorf("%w: missing link", ErrInvalidPaper)
	}
	u, err := url.Parse(p.Link)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: link %q is not an absolute http(s) URL", ErrInvalidPaper, p.Link)
	}
	return nil
}

// FilterByLinks returns the papers whose link is in links, in the order of
// papers. Matching is exact and treats links as opaque keys. A link that
// appears more than once in papers is kept only at its first occurrence.
func FilterByLinks(papers []Paper, links []string) []Paper {
	wanted := make(map[string]bool, len(links))
	for _, l := range links {
		wanted[l] = true
	}

	filtered := make([]Paper, 0, len(links))
	for _, p := range papers {
		if wanted[p.Link] {
			filtered = append(filtered, p)
			delete(wanted, p.Link)
		}
	}
	return filtered
}

// Links returns the link of every paper.
func Links(papers []Paper) []string {
	links := make([]string, len(papers))
	for i, p := range papers {
		links[i] = p.Link
	}
	return links
}
