// Package title extracts the document title from an HTML body.
package title

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const titleSelector = "title"

// Extract returns the inner text of the first <title> element in the
// document. The second return value is false when the body is not
// parseable HTML or carries no title element.
func Extract(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	sel := doc.Find(titleSelector).First()
	if sel.Length() == 0 {
		return "", false
	}

	return sel.Text(), true
}
