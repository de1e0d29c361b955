package scraper

import (
	"strings"
	"time"

	"github.com/carscout/carscout/internal/browser"
)

type fakeElement struct {
	text         string
	html         string
	attrs        map[string]string
	ancestorText string
	imageSrc     string
}

func (e *fakeElement) InnerText() (string, error) { return e.text, nil }
func (e *fakeElement) OuterHTML() (string, error) { return e.html, nil }

func (e *fakeElement) GetAttribute(name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) AncestorText(int, int) (string, error) {
	return e.ancestorText, nil
}

func (e *fakeElement) AncestorImageSrc(int) (string, error) {
	return e.imageSrc, nil
}

type fakePage struct {
	bodyText  string
	elements  map[string][]browser.Element
	navigated []string
	navErr    error
	closed    bool
}

func (p *fakePage) Navigate(url string, _ time.Duration) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) BodyText() (string, error) { return p.bodyText, nil }

func (p *fakePage) QuerySelectorAll(selector string) ([]browser.Element, error) {
	return p.elements[selector], nil
}

func (p *fakePage) Evaluate(string) (interface{}, error) { return nil, nil }
func (p *fakePage) ScrollBy(int, int) error              { return nil }
func (p *fakePage) Close() error                         { p.closed = true; return nil }

type fakeFactory struct {
	page *fakePage
	err  error
}

func (f *fakeFactory) NewPage() (browser.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (p *fakePage) lastNavigated() string {
	if len(p.navigated) == 0 {
		return ""
	}
	return p.navigated[len(p.navigated)-1]
}

func (p *fakePage) navigatedTo(substr string) bool {
	for _, url := range p.navigated {
		if strings.Contains(url, substr) {
			return true
		}
	}
	return false
}
