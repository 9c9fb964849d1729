package presenter

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/blogreader/fetcher/types"
)

// Record is the title/author projection of a post shown in the list.
// Records are index-aligned with the document they were built from.
type Record struct {
	Title  string
	Author string
}

// Records projects every post of doc in order, decoding markup in both fields
func Records(doc *types.Document) []Record {
	if doc == nil {
		return nil
	}
	records := make([]Record, len(doc.Posts))
	for i, p := range doc.Posts {
		records[i] = Record{
			Title:  DecodeHTML(p.Title),
			Author: DecodeHTML(p.Author),
		}
	}
	return records
}

// DecodeHTML turns an HTML fragment into plain text: entities are decoded and tags dropped
func DecodeHTML(s string) string {
	if !strings.ContainsAny(s, "&<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(s)
	}
	return doc.Text()
}
