package browser

// Driver is the abstract page-driving capability consumed by the scraper
// core. The production implementation wraps a playwright page; tests
// substitute fakes.
type Driver interface {
	Navigate(url string) error
	FindAll(selector string) ([]Element, error)
	// PageText returns the rendered text of the whole page. The captcha
	// gate scans it for challenge markers.
	PageText() (string, error)
	// Content returns the page's HTML for offline parsing.
	Content() (string, error)
	// Evaluate is the escape hatch for shadow-root-like isolated subtrees.
	Evaluate(script string) (any, error)
	Close() error
}

// Element is a handle to one located page element.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Click() error
	ScrollIntoView() error
	Visible() (bool, error)
	FindAll(selector string) ([]Element, error)
	Evaluate(script string) (any, error)
}
