// Package classify turns raw journal page bytes into a tagged
// classification and, for viable pages, a structured record. It is
// pure: no I/O, deterministic for a given (id, bytes) pair.
package classify

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/faarchive/journaliser/internal/journal"
)

// ErrUnclassified marks a page that violates the classifier's markup
// assumptions. It is fatal to the calling worker: the site layout has
// drifted and guessing would corrupt the archive.
var ErrUnclassified = errors.New("unclassified journal page")

const (
	systemErrorTitle     = "System Error"
	notFoundMessage      = "The journal you are trying to find is not in our database."
	privateNotice        = "The owner of this page has elected to make it available to registered users only."
	disabledNotice       = "has voluntarily disabled access to their account and all of its contents."
	ownerDeletionNotice  = "The page you are trying to reach is currently pending deletion by a request from its owner."
	adminDeletionNotice  = "The page you are trying to reach is currently pending deletion by a request from the administration."
	deletedByOwner       = "its owner"
	deletedByAdmin       = "the administration"
)

// legacyDisabledPattern is the old phrasing, which quotes the username
// instead of linking the profile.
var legacyDisabledPattern = regexp.MustCompile(`User "([^"]+)" has voluntarily disabled access to their account and all of its contents\.`)

// knownBrokenJournals lists IDs the site permanently serves as a
// system error. They are treated as deleted, with the fixed message
// the server has rendered for them for years.
var knownBrokenJournals = map[int64]string{
	17061: "Journal entry could not be loaded from the text store.",
	17062: "Journal entry could not be loaded from the text store.",
	95513: "Journal entry could not be loaded from the text store.",
}

// Classifier classifies raw journal pages. LinkBase is the site base
// used for the canonical permalink recorded in extracted payloads.
type Classifier struct {
	linkBase string
}

// New builds a Classifier writing permalinks against linkBase.
func New(linkBase string) *Classifier {
	return &Classifier{linkBase: strings.TrimRight(linkBase, "/")}
}

// Classify maps raw page bytes to exactly one outcome. The checks run
// in strict priority order; the first match wins. A returned error is
// always ErrUnclassified-wrapped and must halt the caller.
func (c *Classifier) Classify(id int64, raw []byte) (journal.Classification, error) {
	// A missing closing marker means the transport read was truncated;
	// nothing below can be trusted.
	if !bytes.Contains(raw, []byte("</html>")) {
		return journal.Classification{Outcome: journal.OutcomeIncomplete}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return journal.Classification{}, fmt.Errorf("%w: journal %d: parse html: %v", ErrUnclassified, id, err)
	}
	p := &page{id: id, doc: doc, linkBase: c.linkBase}

	cls := journal.Classification{LoginUser: p.loginUser()}

	if p.isSystemError() {
		msg := p.errorMessage()
		if strings.Contains(msg, notFoundMessage) {
			cls.Outcome = journal.OutcomeNotFound
			cls.Message = msg
			return cls, nil
		}
		if fixed, ok := knownBrokenJournals[id]; ok {
			cls.Outcome = journal.OutcomeNotFound
			cls.Message = fixed
			return cls, nil
		}
		cls.Outcome = journal.OutcomeSystemError
		cls.Message = msg
		return cls, nil
	}

	if p.accountPrivate() {
		cls.Outcome = journal.OutcomeAccountPrivate
		return cls, nil
	}

	if username := p.accountDisabledUsername(); username != "" {
		cls.Outcome = journal.OutcomeAccountDisabled
		cls.DisabledUsername = username
		return cls, nil
	}

	if requestor := p.pendingDeletionBy(); requestor != "" {
		cls.Outcome = journal.OutcomePendingDeletion
		cls.DeletionRequestor = requestor
		return cls, nil
	}

	record, err := p.extract()
	if err != nil {
		return journal.Classification{}, err
	}
	cls.Outcome = journal.OutcomeOK
	cls.Record = record
	return cls, nil
}

// page wraps one parsed document with the selectors the classifier
// cares about.
type page struct {
	id       int64
	doc      *goquery.Document
	linkBase string
}

func (p *page) pageTitle() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

func (p *page) isSystemError() bool {
	return p.pageTitle() == systemErrorTitle
}

// errorMessage returns the error page body collapsed to single-spaced
// text.
func (p *page) errorMessage() string {
	return collapseText(p.doc.Find(".section-body").First().Text())
}

func (p *page) siteContent() *goquery.Selection {
	return p.doc.Find("#site-content").First()
}

func (p *page) noticeRedirect() *goquery.Selection {
	return p.siteContent().Find("section.notice-message .redirect-message").First()
}

func (p *page) accountPrivate() bool {
	redirect := p.noticeRedirect()
	if redirect.Length() == 0 {
		return false
	}
	return strings.Contains(collapseText(redirect.Text()), privateNotice)
}

// accountDisabledUsername handles both notice phrasings: the current
// one links the profile, the legacy one quotes the username.
func (p *page) accountDisabledUsername() string {
	redirect := p.noticeRedirect()
	if redirect.Length() == 0 {
		return ""
	}
	text := collapseText(redirect.Text())
	if m := legacyDisabledPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if !strings.Contains(text, disabledNotice) {
		return ""
	}
	href, ok := redirect.Find(`a[href*="/user/"]`).First().Attr("href")
	if !ok {
		return ""
	}
	return lastPathSegment(href)
}

func (p *page) pendingDeletionBy() string {
	override := p.siteContent().Find("section.notice-message p.link-override").First()
	if override.Length() == 0 {
		return ""
	}
	text := collapseText(override.Text())
	switch {
	case strings.Contains(text, ownerDeletionNotice):
		return deletedByOwner
	case strings.Contains(text, adminDeletionNotice):
		return deletedByAdmin
	}
	return ""
}

// loginUser returns the session identity the page was rendered for,
// empty for guest pages.
func (p *page) loginUser() string {
	if p.doc.Find("form.logout-link").Length() == 0 {
		return ""
	}
	return p.doc.Find("img.loggedin_user_avatar").First().AttrOr("alt", "")
}

// collapseText trims a string and collapses internal whitespace runs
// into single spaces.
func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func lastPathSegment(href string) string {
	trimmed := strings.Trim(href, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
