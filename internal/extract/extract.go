// Package extract turns rendered discussion HTML into revision snapshots.
// It observes the page structure and records it; interpreting what changed
// between snapshots is the reconcile package's job.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// signatureTimestampLayout is the standard signature timestamp rendering on
// UTC-configured wikis, e.g. "14:32, 5 March 2026 (UTC)".
const signatureTimestampLayout = "15:04, 2 January 2006 (UTC)"

var timestampRe = regexp.MustCompile(`\d{2}:\d{2}, \d{1,2} [A-Z][a-z]+ \d{4} \(UTC\)`)

// Parser extracts comment and section snapshots from discussion HTML.
type Parser struct {
	sanitizer *bluemonday.Policy
}

// NewParser creates a Parser with a strict normalization policy: only
// structural tags survive, all attributes are dropped, so two renderings of
// the same content produce byte-identical fragments.
func NewParser() *Parser {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "ul", "ol", "li", "dl", "dd", "dt", "b", "i", "a",
		"code", "pre", "blockquote", "table", "tr", "td", "th", "s", "u", "br")
	return &Parser{sanitizer: p}
}

// Parse builds the snapshot of one revision from its rendered HTML.
func (p *Parser) Parse(pageTitle string, revID int64, pageHTML string) (*model.RevisionSnapshot, error) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse discussion html: %w", err)
	}

	b := &builder{
		parser: p,
		rev: &model.RevisionSnapshot{
			PageTitle:  pageTitle,
			RevisionID: revID,
		},
		idCounts: make(map[string]int),
	}
	b.walk(root)
	b.flush()
	b.resolveParents()

	return b.rev, nil
}

// builder accumulates extraction state during one DOM walk.
type builder struct {
	parser *Parser
	rev    *model.RevisionSnapshot

	// pending state of the comment currently being accumulated.
	pendingFragments []string
	pendingText      []string
	pendingRaw       []string
	pendingAuthor    string
	pendingDate      *time.Time
	pendingLevel     int

	// levels[i] is the indentation level of comment i, used afterwards for
	// parent resolution.
	levels []int

	idCounts map[string]int
}

// walk dispatches headings and comment block elements in document order.
func (b *builder) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h2", "h3", "h4", "h5", "h6":
			b.flush()
			b.openSection(n)
			return
		case "p":
			b.appendBlock(n)
			return
		case "li", "dd":
			// An item wrapping a nested list is a reply container, not a
			// block of its own.
			if !hasNestedList(n) {
				b.appendBlock(n)
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

// openSection starts a new section for the heading node.
func (b *builder) openSection(n *html.Node) {
	level := int(n.Data[1] - '1') // h2 -> 1
	headline := strings.TrimSpace(textContent(n))

	// The nearest preceding section with a smaller level is the parent.
	parent := model.NoRef
	for i := len(b.rev.Sections) - 1; i >= 0; i-- {
		if b.rev.Sections[i].TOCLevel < level {
			parent = i
			break
		}
	}

	b.rev.Sections = append(b.rev.Sections, model.SectionSnapshot{
		Headline:  headline,
		TOCLevel:  level,
		ParentIdx: parent,
	})
}

// appendBlock adds one block element to the pending comment. If the block
// carries a signature, the pending comment is finalized.
func (b *builder) appendBlock(n *html.Node) {
	var raw bytes.Buffer
	if err := html.Render(&raw, n); err != nil {
		return
	}
	text := strings.TrimSpace(textContent(n))

	b.pendingRaw = append(b.pendingRaw, raw.String())
	b.pendingFragments = append(b.pendingFragments, b.normalize(raw.String()))
	if text != "" {
		b.pendingText = append(b.pendingText, text)
	}
	if b.pendingLevel == 0 {
		b.pendingLevel = indentLevel(n)
	}

	if author, date, ok := signature(n, text); ok {
		b.pendingAuthor = author
		b.pendingDate = date
		b.flush()
	}
}

// flush finalizes the pending comment, if any content was accumulated.
func (b *builder) flush() {
	if len(b.pendingFragments) == 0 {
		b.reset()
		return
	}
	// Blocks without any signature are page furniture (notices, templates),
	// not comments.
	if b.pendingAuthor == "" {
		b.reset()
		return
	}

	sectionIdx := model.NoRef
	if len(b.rev.Sections) > 0 {
		sectionIdx = len(b.rev.Sections) - 1
	}

	idx := len(b.rev.Comments)
	comment := model.CommentSnapshot{
		ID:         b.commentID(),
		Author:     b.pendingAuthor,
		Date:       b.pendingDate,
		ParentIdx:  model.NoRef, // resolved after the walk
		Index:      idx,
		Fragments:  b.pendingFragments,
		Text:       strings.Join(b.pendingText, "\n"),
		SectionIdx: sectionIdx,
		TextHTML:   strings.Join(b.pendingRaw, ""),
	}
	b.rev.Comments = append(b.rev.Comments, comment)
	b.levels = append(b.levels, b.pendingLevel)

	if sectionIdx != model.NoRef {
		s := &b.rev.Sections[sectionIdx]
		s.CommentIdxs = append(s.CommentIdxs, idx)
		// The first comment of a section carries the heading HTML so
		// heading edits are attributed to it.
		if len(s.CommentIdxs) == 1 {
			b.rev.Comments[idx].HeadingHTML = "<h" + strconv.Itoa(s.TOCLevel+1) + ">" + s.Headline + "</h" + strconv.Itoa(s.TOCLevel+1) + ">"
		}
	}

	b.reset()
}

func (b *builder) reset() {
	b.pendingFragments = nil
	b.pendingText = nil
	b.pendingRaw = nil
	b.pendingAuthor = ""
	b.pendingDate = nil
	b.pendingLevel = 0
}

// commentID derives the content-based id: author + timestamp + disambiguator
// for repeated author/timestamp pairs within the revision.
func (b *builder) commentID() string {
	key := b.pendingAuthor
	if b.pendingDate != nil {
		key += "-" + b.pendingDate.UTC().Format("200601021504")
	}
	b.idCounts[key]++
	if n := b.idCounts[key]; n > 1 {
		return fmt.Sprintf("%s-%d", key, n)
	}
	return key
}

// resolveParents assigns each comment's parent: the nearest preceding
// comment with a smaller indentation level.
func (b *builder) resolveParents() {
	for i := range b.rev.Comments {
		for j := i - 1; j >= 0; j-- {
			if b.levels[j] < b.levels[i] &&
				b.rev.Comments[j].SectionIdx == b.rev.Comments[i].SectionIdx {
				b.rev.Comments[i].ParentIdx = j
				break
			}
		}
	}
}

// normalize sanitizes one element's HTML and collapses whitespace so that
// render-only differences do not defeat fragment comparison.
func (b *builder) normalize(raw string) string {
	clean := b.parser.sanitizer.Sanitize(raw)
	return strings.Join(strings.Fields(clean), " ")
}

// signature detects a signature inside the block: a user-page link followed
// by a parseable UTC timestamp in the block's text.
func signature(n *html.Node, text string) (string, *time.Time, bool) {
	stamp := timestampRe.FindString(text)
	if stamp == "" {
		return "", nil, false
	}

	author := lastUserLink(n)
	if author == "" {
		return "", nil, false
	}

	parsed, err := time.Parse(signatureTimestampLayout, stamp)
	if err != nil {
		// A timestamp-looking string that does not parse still marks the
		// comment boundary; the comment stays dateless and unmatchable.
		return author, nil, true
	}
	parsed = parsed.UTC()
	return author, &parsed, true
}

// lastUserLink returns the username of the last user-page link in the
// subtree, which by signature convention names the comment author.
func lastUserLink(n *html.Node) string {
	var author string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			for _, attr := range node.Attr {
				if attr.Key != "href" {
					continue
				}
				if name, ok := userFromHref(attr.Val); ok {
					author = name
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return author
}

// userFromHref extracts the username from a User: or User_talk: page link.
func userFromHref(href string) (string, bool) {
	for _, prefix := range []string{"User:", "User_talk:"} {
		if i := strings.Index(href, prefix); i >= 0 {
			name := href[i+len(prefix):]
			if j := strings.IndexAny(name, "/#?&"); j >= 0 {
				name = name[:j]
			}
			name = strings.ReplaceAll(name, "_", " ")
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}

// hasNestedList reports whether the node contains a dl/ul/ol descendant.
func hasNestedList(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "dl", "ul", "ol":
				return true
			}
		}
		if hasNestedList(c) {
			return true
		}
	}
	return false
}

// indentLevel counts the dl/ul/ol ancestors of the block, the talk-page
// convention for reply depth.
func indentLevel(n *html.Node) int {
	level := 0
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			switch p.Data {
			case "dl", "ul", "ol":
				level++
			}
		}
	}
	return level
}

// textContent concatenates the text nodes of the subtree.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}
