package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/accesslens/accesslens/pkg/errors"
)

// contrastJS samples computed foreground/background colors for leaf text
// elements. Background resolution walks up through transparent ancestors and
// falls back to white, which matches how browsers composite an unstyled page.
const contrastJS = `() => {
	const out = [];
	const path = (el) => {
		if (el.id) return el.tagName.toLowerCase() + '#' + el.id;
		const parts = [];
		while (el && el.nodeType === 1 && parts.length < 5) {
			let p = el.tagName.toLowerCase();
			const parent = el.parentElement;
			if (parent) {
				const same = Array.from(parent.children).filter(ch => ch.tagName === el.tagName);
				if (same.length > 1) p += ':nth-of-type(' + (same.indexOf(el) + 1) + ')';
			}
			parts.unshift(p);
			el = parent;
		}
		return parts.join(' > ');
	};
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
	let n = walker.currentNode;
	while (n && out.length < 500) {
		const el = n;
		n = walker.nextNode();
		if (el.children.length > 0) continue;
		if (!el.innerText || !el.innerText.trim()) continue;
		const cs = getComputedStyle(el);
		if (cs.visibility === 'hidden' || cs.display === 'none') continue;
		let bg = cs.backgroundColor, p = el.parentElement;
		while (p && (bg === 'rgba(0, 0, 0, 0)' || bg === 'transparent')) {
			bg = getComputedStyle(p).backgroundColor;
			p = p.parentElement;
		}
		if (bg === 'rgba(0, 0, 0, 0)' || bg === 'transparent') bg = 'rgb(255, 255, 255)';
		out.push({
			sel: path(el),
			fg: cs.color,
			bg: bg,
			size: parseFloat(cs.fontSize) || 0,
			bold: parseInt(cs.fontWeight, 10) >= 700,
		});
	}
	return JSON.stringify(out);
}`

// ChromeFactory creates isolated incognito contexts on one shared headless
// Chromium process. Set ROD_BROWSER_BIN to use a system Chrome binary.
type ChromeFactory struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChromeFactory launches the headless browser. The --no-sandbox flag is
// required in typical container deployments.
func NewChromeFactory() (*ChromeFactory, error) {
	const op = "render.NewChromeFactory"

	l := launcher.New().Headless(true).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		return nil, errors.E(errors.KindRenderFailure, op, "launch browser", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errors.E(errors.KindRenderFailure, op, "connect to browser", err)
	}

	return &ChromeFactory{launcher: l, browser: b}, nil
}

// NewContext creates a fresh incognito browser context.
func (f *ChromeFactory) NewContext(ctx context.Context) (Context, error) {
	incognito, err := f.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, err
	}
	return &chromeContext{browser: incognito}, nil
}

// Close shuts the shared browser process down and cleans its user data dir.
func (f *ChromeFactory) Close() error {
	err := f.browser.Close()
	f.launcher.Cleanup()
	return err
}

// chromeContext is one incognito context; pages are opened and closed per
// visit so no navigation state survives between runs.
type chromeContext struct {
	browser *rod.Browser
}

func (c *chromeContext) Visit(ctx context.Context, url string, opts VisitOptions) (*Capture, error) {
	page, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := page.Navigate(url); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	// Give late scripts a short settle window; a page that never goes idle
	// is still captured once the window elapses.
	_ = page.WaitIdle(2 * time.Second)

	htmlText, err := page.HTML()
	if err != nil {
		return nil, err
	}

	capture := &Capture{HTML: htmlText}
	if opts.CollectContrast {
		res, err := page.Eval(contrastJS)
		if err != nil {
			return nil, err
		}
		var samples []ContrastSample
		if err := json.Unmarshal([]byte(res.Value.Str()), &samples); err != nil {
			return nil, err
		}
		capture.Contrast = samples
	}
	return capture, nil
}

func (c *chromeContext) Close() error {
	if c.browser.BrowserContextID == "" {
		return nil
	}
	return proto.TargetDisposeBrowserContext{BrowserContextID: c.browser.BrowserContextID}.Call(c.browser)
}

var (
	_ Factory = (*ChromeFactory)(nil)
	_ Context = (*chromeContext)(nil)
)
