package webrules

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func attrVal(n *html.Node, name string) string {
	v, _ := attr(n, name)
	return v
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// walk visits every element node in document order. Returning false from fn
// stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findAll(root *html.Node, tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if want[n.Data] {
			out = append(out, n)
		}
		return true
	})
	return out
}

func findFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// textContent collects the concatenated text under a node, whitespace
// normalized. Script and style bodies are excluded.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// isHiddenFromTree reports whether the element opts out of the accessibility
// tree via aria-hidden or a presentational role.
func isHiddenFromTree(n *html.Node) bool {
	if strings.EqualFold(attrVal(n, "aria-hidden"), "true") {
		return true
	}
	switch strings.ToLower(attrVal(n, "role")) {
	case "presentation", "none":
		return true
	}
	return false
}

// locator builds a short CSS-style path for a node, good enough to find the
// element again in the page source.
func locator(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode && len(parts) < 5; cur = cur.Parent {
		if id := attrVal(cur, "id"); id != "" {
			parts = append([]string{cur.Data + "#" + id}, parts...)
			break
		}
		seg := cur.Data
		if idx, total := siblingIndex(cur); total > 1 {
			seg = fmt.Sprintf("%s:nth-of-type(%d)", seg, idx)
		}
		parts = append([]string{seg}, parts...)
	}
	return strings.Join(parts, " > ")
}

func siblingIndex(n *html.Node) (idx, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == n.Data {
			total++
			if c == n {
				idx = total
			}
		}
	}
	return idx, total
}
