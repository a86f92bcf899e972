package lab

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CellOutput is a snapshot of a code cell's settled output area.
type CellOutput struct {
	Index int    `json:"index"`
	HTML  string `json:"html"`
}

// Text returns the output's plain text with markup stripped.
func (o *CellOutput) Text() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(o.HTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}
