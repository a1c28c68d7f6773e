package literature

import (
	"encoding/xml"
	"html"
	"regexp"
	"strings"
)

// esearchResult is the XML body of esearch.fcgi with usehistory=y.
type esearchResult struct {
	XMLName  xml.Name `xml:"eSearchResult"`
	Count    int      `xml:"Count"`
	IDs      []string `xml:"IdList>Id"`
	QueryKey string   `xml:"QueryKey"`
	WebEnv   string   `xml:"WebEnv"`
	Error    string   `xml:"ERROR"`
}

// articleSet is the XML body of efetch.fcgi for db=pubmed.
type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string  `xml:"MedlineCitation>PMID"`
	Article article `xml:"MedlineCitation>Article"`
}

type article struct {
	Title    markup    `xml:"ArticleTitle"`
	Abstract []section `xml:"Abstract>AbstractText"`
	Authors  []author  `xml:"AuthorList>Author"`
	PubDate  pubDate   `xml:"Journal>JournalIssue>PubDate"`
}

type section struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

// markup keeps the raw inner XML of elements that may carry inline
// formatting such as <i> or <sup>.
type markup struct {
	Inner string `xml:",innerxml"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Text returns the element text with inline tags removed and entities decoded.
func (m markup) Text() string {
	text := tagPattern.ReplaceAllString(m.Inner, "")
	return strings.Join(strings.Fields(html.UnescapeString(text)), " ")
}

func (a pubmedArticle) toPaper() Paper {
	return Paper{
		Title:         a.Article.Title.Text(),
		Link:          PaperLink(a.PMID),
		Authors:       a.Article.authorList(),
		PublishedDate: a.Article.PubDate.String(),
		Abstract:      a.Article.abstractText(),
	}
}

func (a article) abstractText() string {
	parts := make([]string, 0, len(a.Abstract))
	for _, s := range a.Abstract {
		text := markup{Inner: s.Inner}.Text()
		if text == "" {
			continue
		}
		if s.Label != "" && len(a.Abstract) > 1 {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func (a article) authorList() []Author {
	authors := make([]Author, 0, len(a.Authors))
	for _, au := range a.Authors {
		name := strings.TrimSpace(au.LastName + " " + au.ForeName)
		if name == "" {
			name = strings.TrimSpace(au.CollectiveName)
		}
		if name == "" {
			continue
		}
		authors = append(authors, Author{Name: name})
	}
	return authors
}

// String renders Year-Month-Day. Missing parts stay empty, so a year-only
// record renders as "2023--".
func (d pubDate) String() string {
	if d.Year == "" && d.Month == "" && d.Day == "" && d.MedlineDate != "" {
		return d.MedlineDate
	}
	return d.Year + "-" + d.Month + "-" + d.Day
}

// PaperLink builds the canonical PubMed URL for a PMID.
func PaperLink(pmid string) string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + strings.TrimSpace(pmid) + "/"
}
