package careers

import (
	"time"

	"github.com/voluzi/gridpilot/internal/retry"
)

// Config is the page contract of the careers site plus the timings of each stage.
type Config struct {
	URL string `json:"url" yaml:"url"`

	CookieButtonID string        `json:"cookieButtonID" yaml:"cookieButtonID"`
	CookieTimeout  time.Duration `json:"cookieTimeout" yaml:"cookieTimeout"`
	PageTimeout    time.Duration `json:"pageTimeout" yaml:"pageTimeout"`

	SeeAllJobsXPath string `json:"seeAllJobsXPath" yaml:"seeAllJobsXPath"`

	LocationSelectID   string   `json:"locationSelectID" yaml:"locationSelectID"`
	LocationCandidates []string `json:"locationCandidates" yaml:"locationCandidates"`
	// OptionsPoll bounds the wait for the location select to be populated.
	OptionsPoll retry.Policy `json:"optionsPoll" yaml:"optionsPoll"`
	// ReclickEvery re-clicks the location select on attempts 0, n, 2n, ...
	ReclickEvery int `json:"reclickEvery" yaml:"reclickEvery"`
	// ListedOptions caps the options quoted in a selection failure.
	ListedOptions int `json:"listedOptions" yaml:"listedOptions"`

	DepartmentSelectID string `json:"departmentSelectID" yaml:"departmentSelectID"`
	Department         string `json:"department" yaml:"department"`

	LocationSettle   time.Duration `json:"locationSettle" yaml:"locationSettle"`
	DepartmentSettle time.Duration `json:"departmentSettle" yaml:"departmentSettle"`

	ListingClass    string           `json:"listingClass" yaml:"listingClass"`
	TitleClass      string           `json:"titleClass" yaml:"titleClass"`
	DepartmentClass string           `json:"departmentClass" yaml:"departmentClass"`
	LocationClass   string           `json:"locationClass" yaml:"locationClass"`
	LazyLoadOffset  int              `json:"lazyLoadOffset" yaml:"lazyLoadOffset"`
	LazyLoadWaits   [2]time.Duration `json:"lazyLoadWaits" yaml:"lazyLoadWaits"`

	TitleKeywords      []string `json:"titleKeywords" yaml:"titleKeywords"`
	DepartmentKeywords []string `json:"departmentKeywords" yaml:"departmentKeywords"`
	LocationKeywords   []string `json:"locationKeywords" yaml:"locationKeywords"`

	ViewRoleXPath  string `json:"viewRoleXPath" yaml:"viewRoleXPath"`
	ExpectedDomain string `json:"expectedDomain" yaml:"expectedDomain"`
}

func DefaultConfig() Config {
	return Config{
		URL:             "https://useinsider.com/careers/quality-assurance/",
		CookieButtonID:  "wt-cli-accept-all-btn",
		CookieTimeout:   10 * time.Second,
		PageTimeout:     30 * time.Second,
		SeeAllJobsXPath: "//a[contains(text(), 'See all QA jobs')]",

		LocationSelectID:   "filter-by-location",
		LocationCandidates: []string{"Istanbul, Turkiye", "Istanbul, Turkey", "Istanbul"},
		OptionsPoll:        retry.Policy{Attempts: 20, Delay: time.Second},
		ReclickEvery:       5,
		ListedOptions:      5,

		DepartmentSelectID: "filter-by-department",
		Department:         "Quality Assurance",

		LocationSettle:   2 * time.Second,
		DepartmentSettle: 3 * time.Second,

		ListingClass:    "position-list-item",
		TitleClass:      "position-title",
		DepartmentClass: "position-department",
		LocationClass:   "position-location",
		LazyLoadOffset:  500,
		LazyLoadWaits:   [2]time.Duration{2 * time.Second, 3 * time.Second},

		TitleKeywords:      []string{"QA", "Quality Assurance"},
		DepartmentKeywords: []string{"Quality Assurance"},
		LocationKeywords:   []string{"Istanbul", "Turkey", "Turkiye"},

		ViewRoleXPath:  ".//a[contains(text(), 'View Role')]",
		ExpectedDomain: "jobs.lever.co",
	}
}
