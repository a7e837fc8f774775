package careers

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/PuerkitoBio/goquery"
)

// Listing is one job posting as shown in the filtered list.
type Listing struct {
	Title       string
	Department  string
	Location    string
	ViewRoleURL string
}

func (l Listing) String() string {
	return fmt.Sprintf("%s | %s | %s", l.Title, l.Department, l.Location)
}

// CleanText collapses whitespace, including non-breaking spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// ParseListing decomposes the outer HTML of a listing element. Every text field is required;
// the view role link is optional.
func ParseListing(html string, cfg Config) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Listing{}, errors.Wrap(err, "parsing listing html")
	}

	field := func(class string) (string, error) {
		sel := doc.Find("." + class).First()
		if sel.Length() == 0 {
			return "", errors.Errorf("missing .%s", class)
		}
		return CleanText(sel.Text()), nil
	}

	var l Listing
	if l.Title, err = field(cfg.TitleClass); err != nil {
		return Listing{}, err
	}
	if l.Department, err = field(cfg.DepartmentClass); err != nil {
		return Listing{}, err
	}
	if l.Location, err = field(cfg.LocationClass); err != nil {
		return Listing{}, err
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(a.Text(), "View Role") {
			l.ViewRoleURL, _ = a.Attr("href")
			return false
		}
		return true
	})
	return l, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Violations lists every field of l that fails its content check.
func (cfg Config) Violations(l Listing) []string {
	var out []string
	if !containsAny(l.Title, cfg.TitleKeywords) {
		out = append(out, fmt.Sprintf("invalid title %q", l.Title))
	}
	if !containsAny(l.Department, cfg.DepartmentKeywords) {
		out = append(out, fmt.Sprintf("invalid department %q", l.Department))
	}
	if !containsAny(l.Location, cfg.LocationKeywords) {
		out = append(out, fmt.Sprintf("invalid location %q", l.Location))
	}
	return out
}

// PickOption returns the first candidate present among options. Options are compared after
// CleanText.
func PickOption(candidates, options []string) (string, bool) {
	present := make(map[string]struct{}, len(options))
	for _, o := range options {
		present[CleanText(o)] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := present[c]; ok {
			return c, true
		}
	}
	return "", false
}
