package classify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/faarchive/journaliser/internal/journal"
)

// extract builds the full StructuredRecord for a page that passed the
// error checks. Missing required markup is fatal: a viable journal page
// always carries these elements, so their absence means layout drift.
func (p *page) extract() (*journal.StructuredRecord, error) {
	content := p.doc.Find(".content").First()
	if content.Length() == 0 {
		return nil, p.fatal("no .content element")
	}

	title := strings.TrimSpace(content.Find(".journal-title").First().Text())
	if title == "" {
		return nil, p.fatal("no journal title")
	}

	postedAt, err := p.popupDate(content.Find("span.popup_date").First())
	if err != nil {
		return nil, err
	}

	body, err := requiredFragment(content, ".journal-content")
	if err != nil {
		return nil, p.fatal("%v", err)
	}

	author, err := p.journalAuthor()
	if err != nil {
		return nil, err
	}

	comments, err := p.comments()
	if err != nil {
		return nil, err
	}

	status, err := p.siteStatus()
	if err != nil {
		return nil, err
	}

	return &journal.StructuredRecord{
		JournalID:           p.id,
		Title:               title,
		Header:              optionalFragment(content, ".journal-header"),
		Body:                body,
		Footer:              optionalFragment(content, ".journal-footer"),
		Author:              *author,
		CommentsDisabled:    content.Find(".comments-disabled").Length() > 0,
		Comments:            comments,
		NumComments:         len(comments),
		LatestCommentPosted: latestCommentTime(comments),
		Link:                journal.Permalink(p.linkBase, p.id),
		PostedAt:            postedAt,
		SiteStatus:          *status,
	}, nil
}

// popupDate reads a human-relative date element. When the display text
// is relative ("... ago") the precise timestamp lives in the title
// attribute; otherwise the display text is the timestamp.
func (p *page) popupDate(sel *goquery.Selection) (time.Time, error) {
	if sel.Length() == 0 {
		return time.Time{}, p.fatal("no date element")
	}
	display := strings.TrimSpace(sel.Text())
	raw := display
	if strings.Contains(display, "ago") {
		raw = strings.TrimSpace(sel.AttrOr("title", ""))
	}
	t, err := parseSiteTime(raw)
	if err != nil {
		return time.Time{}, p.fatal("parse date %q: %v", raw, err)
	}
	return t, nil
}

// journalAuthor parses the userpage navigation header above the
// journal body.
func (p *page) journalAuthor() (*journal.Author, error) {
	nav := p.siteContent().Find("userpage-nav-header").First()
	if nav.Length() == 0 {
		return nil, p.fatal("no userpage-nav-header")
	}
	author, _, err := p.authorBlock(nav, "userpage-nav-avatar img")
	return author, err
}

// authorBlock parses one identity block: the journal author's page
// header or a comment's author column. avatarSel locates the avatar
// image whose alt attribute is the canonical username. The second
// return reports whether the block carried the "edited" badge, which
// belongs to the enclosing comment rather than the author.
func (p *page) authorBlock(block *goquery.Selection, avatarSel string) (*journal.Author, bool, error) {
	avatar := block.Find(avatarSel).First()
	username := strings.TrimSpace(avatar.AttrOr("alt", ""))
	if username == "" {
		return nil, false, p.fatal("author block has no avatar username")
	}
	avatarURL := avatar.AttrOr("src", "")
	if strings.HasPrefix(avatarURL, "//") {
		avatarURL = "https:" + avatarURL
	}

	nameElem := block.Find("username").First()
	rawDisplay := collapseText(nameElem.Text())
	if rawDisplay == "" {
		return nil, false, p.fatal("author block has no display name")
	}

	prefix, display, err := p.statusPrefix(nameElem, rawDisplay, username)
	if err != nil {
		return nil, false, err
	}
	meaning, ok := prefixMeanings[prefix]
	if !ok {
		return nil, false, p.fatal("unknown status prefix %q for user %q", prefix, username)
	}

	badges, edited := p.badges(block)

	author := &journal.Author{
		DisplayName:         display,
		Username:            username,
		Avatar:              avatarURL,
		StatusPrefix:        prefix,
		StatusPrefixMeaning: meaning,
		Badges:              badges,
		UserTitle:           collapseText(block.Find(".user-title").First().Text()),
	}

	if since := block.Find(".registered-since").First(); since.Length() > 0 {
		raw := since.AttrOr("title", "")
		if raw == "" {
			raw = strings.TrimSpace(since.Text())
		}
		t, err := parseSiteTime(raw)
		if err != nil {
			return nil, false, p.fatal("parse registration date %q: %v", raw, err)
		}
		author.RegisteredAt = &t
	}
	return author, edited, nil
}

// prefixMeanings is the fixed total mapping from status glyph to its
// meaning. An unknown glyph is a fatal extraction error, not a guess.
var prefixMeanings = map[string]string{
	"∞": "Deceased",
	"!": "Suspended",
	"~": "Member",
	"-": "Banned",
	"@": "Staff",
	"":  "",
}

// statusPrefix infers the author's status glyph. The display name may
// carry a glyph the canonical username lacks; when no dedicated markup
// spells it out, the glyph has to be reconciled against the username.
// Returns the prefix and the display name with the prefix removed.
func (p *page) statusPrefix(nameElem *goquery.Selection, rawDisplay, username string) (string, string, error) {
	if symbol := nameElem.Find(".user-symbol").First(); symbol.Length() > 0 {
		prefix := strings.TrimSpace(symbol.Text())
		return prefix, strings.TrimSpace(strings.TrimPrefix(rawDisplay, prefix)), nil
	}

	first, size := firstRune(rawDisplay)
	rest := rawDisplay[size:]

	// These glyphs never begin a real display name.
	if first == "∞" || first == "!" {
		return first, rest, nil
	}

	if normalizeName(rawDisplay) == strings.ToLower(username) {
		return "", rawDisplay, nil
	}

	if first == "~" || first == "-" {
		rem := normalizeName(rest)
		uname := strings.ToLower(username)
		// The site truncates long display names, so the remainder may
		// be only the leading part of the username.
		if rem != "" && (rem == uname || strings.HasPrefix(uname, rem)) {
			return first, rest, nil
		}
	}

	return "", "", p.fatal("display name %q does not reconcile with username %q", rawDisplay, username)
}

func firstRune(s string) (string, int) {
	for _, r := range s {
		return string(r), len(string(r))
	}
	return "", 0
}

// normalizeName lowercases a display name and strips the separator
// characters the site drops when deriving canonical usernames.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '.':
			return -1
		}
		return r
	}, s)
}

// badges parses the user icon zones before and after the username.
// The "edited" badge marks edited comments, not the author, so it is
// filtered from the returned list and reported separately.
func (p *page) badges(block *goquery.Selection) ([]journal.Badge, bool) {
	var badges []journal.Badge
	edited := false
	for _, zone := range []string{"before", "after"} {
		block.Find("."+badgeZoneClass(zone)).Find("img").Each(func(_ int, img *goquery.Selection) {
			badge := journal.Badge{
				Position:  zone,
				Title:     img.AttrOr("title", ""),
				ClassType: badgeClassType(img.AttrOr("class", "")),
				ImageURL:  img.AttrOr("src", ""),
			}
			if badge.ClassType == "edited" {
				edited = true
				return
			}
			badges = append(badges, badge)
		})
	}
	return badges, edited
}

func badgeZoneClass(zone string) string {
	return "usericon-block-" + zone
}

// badgeClassType extracts the type token from a badge image's class
// list, e.g. "badge badge-admin" yields "admin".
func badgeClassType(classes string) string {
	for _, class := range strings.Fields(classes) {
		if rest, ok := strings.CutPrefix(class, "badge-"); ok {
			return rest
		}
	}
	return ""
}

// siteStatus parses the four online counters and the server clock
// stamped into the page footer. The counter labels are validated at
// their expected positions: silent misalignment on markup drift would
// poison the peak-load throttle.
func (p *page) siteStatus() (*journal.SiteStatus, error) {
	stats := p.doc.Find(".online-stats").First()
	if stats.Length() == 0 {
		return nil, p.fatal("no online-stats element")
	}
	counts, err := parseOnlineCounts(stats.Text())
	if err != nil {
		return nil, p.fatal("%v", err)
	}

	clock := p.doc.Find(".server-time").First()
	if clock.Length() == 0 {
		return nil, p.fatal("no server-time element")
	}
	raw := clock.AttrOr("title", "")
	if raw == "" {
		raw = strings.TrimSpace(clock.Text())
	}
	at, err := parseSiteTime(raw)
	if err != nil {
		return nil, p.fatal("parse server time %q: %v", raw, err)
	}

	return &journal.SiteStatus{ServerTimeAt: at, Online: *counts}, nil
}

// parseOnlineCounts reads the fixed token sequence
// "<total> users online <guests> guests, <registered> registered, <other> other".
func parseOnlineCounts(text string) (*journal.OnlineCounts, error) {
	tokens := strings.Fields(strings.ReplaceAll(text, ",", " "))
	labels := []struct {
		pos  int
		want string
	}{
		{1, "users"}, {2, "online"}, {4, "guests"}, {6, "registered"}, {8, "other"},
	}
	if len(tokens) < 9 {
		return nil, fmt.Errorf("online stats: want 9 tokens, got %d in %q", len(tokens), text)
	}
	for _, l := range labels {
		if tokens[l.pos] != l.want {
			return nil, fmt.Errorf("online stats: token %d is %q, want %q", l.pos, tokens[l.pos], l.want)
		}
	}
	counts := &journal.OnlineCounts{}
	for _, f := range []struct {
		pos  int
		dest *int
	}{
		{0, &counts.Total}, {3, &counts.Guests}, {5, &counts.Registered}, {7, &counts.Other},
	} {
		n, err := strconv.Atoi(tokens[f.pos])
		if err != nil {
			return nil, fmt.Errorf("online stats: token %d %q is not a count", f.pos, tokens[f.pos])
		}
		*f.dest = n
	}
	return counts, nil
}

// requiredFragment returns the trimmed inner HTML of the first match,
// erroring when the selector matches nothing.
func requiredFragment(root *goquery.Selection, selector string) (string, error) {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no %s element", selector)
	}
	frag, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("render %s: %w", selector, err)
	}
	return strings.TrimSpace(frag), nil
}

// optionalFragment is requiredFragment for elements older pages lack.
func optionalFragment(root *goquery.Selection, selector string) *string {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	frag, err := sel.Html()
	if err != nil {
		return nil
	}
	trimmed := strings.TrimSpace(frag)
	return &trimmed
}

// fatal wraps a markup invariant violation for this page.
func (p *page) fatal(format string, args ...any) error {
	return fmt.Errorf("%w: journal %d: %s", ErrUnclassified, p.id, fmt.Sprintf(format, args...))
}
