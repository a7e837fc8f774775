package careers

import (
	"fmt"

	"github.com/voluzi/gridpilot/internal/webdriver"
	"github.com/voluzi/gridpilot/internal/webdriver/webdrivertest"
)

// page is a scripted careers page on top of the fake session.
type page struct {
	session *webdrivertest.Session
	cfg     Config

	cookie     *webdrivertest.Element
	seeAll     *webdrivertest.Element
	location   *webdrivertest.Element
	department *webdrivertest.Element

	options  map[*webdrivertest.Element][]string
	selected map[*webdrivertest.Element]string

	// emptyReads is the number of option reads that return only the placeholder.
	emptyReads   int
	optionReads  int
	lazyListings []*webdrivertest.Element
}

func newPage(cfg Config) *page {
	p := &page{
		session:    webdrivertest.NewSession(),
		cfg:        cfg,
		cookie:     webdrivertest.NewElement("cookie", "Accept All"),
		seeAll:     webdrivertest.NewElement("see-all", "See all QA jobs"),
		location:   webdrivertest.NewElement("location", ""),
		department: webdrivertest.NewElement("department", ""),
		selected:   map[*webdrivertest.Element]string{},
	}
	p.options = map[*webdrivertest.Element][]string{
		p.location:   {"All", "Istanbul, Turkiye", "London, UK"},
		p.department: {"All", "Quality Assurance", "Sales"},
	}

	p.session.
		Add(webdriver.ByID, cfg.CookieButtonID, p.cookie).
		Add(webdriver.ByXPath, cfg.SeeAllJobsXPath, p.seeAll).
		Add(webdriver.ByID, cfg.LocationSelectID, p.location).
		Add(webdriver.ByID, cfg.DepartmentSelectID, p.department)
	p.session.OnScript = p.script
	return p
}

func (p *page) script(script string, args []interface{}) (interface{}, error) {
	var el *webdrivertest.Element
	if len(args) > 0 {
		el, _ = args[0].(*webdrivertest.Element)
	}

	switch script {
	case clickScript:
		return nil, el.Click()

	case optionsScript:
		opts := p.options[el]
		if el == p.location {
			p.optionReads++
			if p.optionReads <= p.emptyReads {
				opts = opts[:1]
			}
		}
		out := make([]interface{}, len(opts))
		for i, o := range opts {
			out[i] = o
		}
		return out, nil

	case selectScript:
		idx := args[1].(int)
		if idx < 0 || idx >= len(p.options[el]) {
			return false, nil
		}
		p.selected[el] = p.options[el][idx]
		return true, nil

	case outerHTMLScript:
		html := el.Attrs["outerHTML"]
		if html == "" {
			return nil, nil
		}
		return html, nil

	case scrollEndScript:
		if p.lazyListings != nil {
			p.session.Set(webdriver.ByClassName, p.cfg.ListingClass, p.lazyListings...)
		}
		return nil, nil
	}
	return nil, nil
}

func (p *page) withListings(items ...*webdrivertest.Element) *page {
	p.session.Set(webdriver.ByClassName, p.cfg.ListingClass, items...)
	return p
}

// listingHTML renders a listing the way the careers page does.
func listingHTML(title, dept, loc, href string) string {
	return fmt.Sprintf(`<div class="position-list-item">
  <p class="position-title font-weight-bold">%s</p>
  <span class="position-department">%s</span>
  <div class="position-location text-large">%s</div>
  <a href="%s" class="btn">View Role</a>
</div>`, title, dept, loc, href)
}

// listing builds a listing element that answers both outerHTML and element lookups.
func listing(cfg Config, title, dept, loc, href string) *webdrivertest.Element {
	el := webdrivertest.NewElement("listing", title)
	el.Attrs["outerHTML"] = listingHTML(title, dept, loc, href)
	link := webdrivertest.NewElement("view-role", "View Role")
	link.Attrs["href"] = href

	el.Add(webdriver.ByClassName, cfg.TitleClass, webdrivertest.NewElement("title", title)).
		Add(webdriver.ByClassName, cfg.DepartmentClass, webdrivertest.NewElement("department", dept)).
		Add(webdriver.ByClassName, cfg.LocationClass, webdrivertest.NewElement("location", loc)).
		Add(webdriver.ByXPath, cfg.ViewRoleXPath, link)
	return el
}
