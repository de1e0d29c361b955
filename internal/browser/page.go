package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightPage adapts a playwright.Page to the Page interface.
type playwrightPage struct {
	page   playwright.Page
	logger *slog.Logger
}

func (p *playwrightPage) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) BodyText() (string, error) {
	text, err := p.page.InnerText("body")
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return text, nil
}

func (p *playwrightPage) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}

	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}
	return elements, nil
}

func (p *playwrightPage) Evaluate(script string) (interface{}, error) {
	return p.page.Evaluate(script)
}

func (p *playwrightPage) ScrollBy(dx, dy int) error {
	_, err := p.page.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy))
	return err
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

// playwrightElement adapts a playwright.ElementHandle to the Element
// interface. Ancestor walks run inside the page so the core logic only
// depends on "text at depth N", not on a DOM traversal API.
type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e *playwrightElement) OuterHTML() (string, error) {
	result, err := e.handle.Evaluate("el => el.outerHTML")
	if err != nil {
		return "", err
	}
	html, _ := result.(string)
	return html, nil
}

func (e *playwrightElement) GetAttribute(name string) (string, error) {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (e *playwrightElement) AncestorText(maxDepth, minLength int) (string, error) {
	script := fmt.Sprintf(`el => {
		let current = el;
		for (let level = 0; level < %d; level++) {
			if (!current || !current.parentElement) break;
			current = current.parentElement;
			const text = current.innerText || '';
			if (text.length > %d) {
				return text;
			}
		}
		return '';
	}`, maxDepth, minLength)

	result, err := e.handle.Evaluate(script)
	if err != nil {
		return "", err
	}
	text, _ := result.(string)
	return text, nil
}

func (e *playwrightElement) AncestorImageSrc(maxDepth int) (string, error) {
	script := fmt.Sprintf(`el => {
		let current = el;
		for (let level = 0; level < %d; level++) {
			if (!current) break;
			const img = current.querySelector ? current.querySelector('img') : null;
			if (img && img.src) {
				return img.src;
			}
			current = current.parentElement;
		}
		return '';
	}`, maxDepth)

	result, err := e.handle.Evaluate(script)
	if err != nil {
		return "", err
	}
	src, _ := result.(string)
	return src, nil
}
