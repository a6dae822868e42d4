package mhfc

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/matchcal/matchcal/internal/domain/match"
)

// The club site renders fixtures server-side as tailwind-styled divs. Each
// fixture row is a div carrying both the "flex" and "border-b" classes; the
// fields inside are located by class, same as the site's own frontend does.
var provisionalBracket = regexp.MustCompile(`\([^)]*` + match.NotFinalMarker + `[^)]*\)`)

// parseFixtures extracts every fixture row from a matches page. Rows missing
// required fields are skipped; a page with zero rows is not an error here,
// the client decides whether the overall fetch produced anything.
func parseFixtures(root *html.Node) []match.Raw {
	var out []match.Raw
	for _, row := range findAll(root, isFixtureRow) {
		raw, ok := parseFixtureRow(row)
		if !ok {
			continue
		}
		out = append(out, raw)
	}
	return out
}

func parseFixtureRow(row *html.Node) (match.Raw, bool) {
	dateBox := findFirst(row, elemWithClasses("div", "bg-grayMediumLight"))
	if dateBox == nil {
		return match.Raw{}, false
	}

	day := nodeText(findFirst(dateBox, elemWithClasses("span", "text-4xl")))
	month := nodeText(findFirst(dateBox, elemWithClasses("span", "text-xl")))
	if day == "" || month == "" {
		return match.Raw{}, false
	}

	kickoff := nodeText(findFirst(row, elemWithClasses("div", "text-4xl")))
	if kickoff == "" {
		return match.Raw{}, false
	}

	// The first lg:text-xl span is the competition label, then away, then
	// home. That ordering is how the site lays the row out in RTL.
	labels := findAll(row, elemWithClasses("span", "lg:text-xl"))
	if len(labels) < 3 {
		return match.Raw{}, false
	}
	competition := nodeText(labels[0])
	awayTeam := nodeText(labels[1])
	homeTeam := nodeText(labels[2])
	if awayTeam == "" || homeTeam == "" {
		return match.Raw{}, false
	}

	if strings.Contains(competition, "WINNER") {
		competition = "ליגה"
	}
	if homeTeam == "מכבי חיפה" {
		homeTeam = "מכבי"
	}
	if awayTeam == "מכבי חיפה" {
		awayTeam = "מכבי"
	}

	venue := nodeText(findFirst(row, elemWithClasses("span", "text-grayLight")))
	if venue == "" {
		venue = "לא ידוע"
	}

	return match.Raw{
		DateDay:      day,
		DateMonth:    month,
		Time:         kickoff,
		Competition:  competition,
		Venue:        venue,
		HomeTeam:     homeTeam,
		AwayTeam:     awayTeam,
		NotFinalTime: provisionalBracket.FindString(nodeText(dateBox)),
	}, true
}

func isFixtureRow(n *html.Node) bool {
	return elemWithClasses("div", "flex", "border-b")(n)
}

func elemWithClasses(tag string, classes ...string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != tag {
			return false
		}
		have := strings.Fields(attrVal(n, "class"))
		for _, want := range classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findAll returns matching descendants in document order. Matched nodes are
// not descended into, so nested fixture rows cannot double-count.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if pred(child) {
			out = append(out, child)
			continue
		}
		out = append(out, findAll(child, pred)...)
	}
	return out
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if pred(child) {
			return child
		}
		if found := findFirst(child, pred); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
