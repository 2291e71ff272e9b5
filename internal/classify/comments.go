package classify

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/faarchive/journaliser/internal/journal"
)

const (
	commentAnchorPrefix = "cid:"
	parentHrefPrefix    = "#cid:"
)

// comments parses the flat comment thread below the journal body.
func (p *page) comments() ([]journal.Comment, error) {
	var (
		out     []journal.Comment
		loopErr error
	)
	p.doc.Find(".comment_container").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		comment, err := p.comment(node)
		if err != nil {
			loopErr = err
			return false
		}
		out = append(out, *comment)
		return true
	})
	if loopErr != nil {
		return nil, loopErr
	}
	return out, nil
}

func (p *page) comment(node *goquery.Selection) (*journal.Comment, error) {
	id, err := p.commentID(node)
	if err != nil {
		return nil, err
	}

	comment := &journal.Comment{
		CommentID: id,
		ParentID:  p.commentParentID(node),
		IsOP:      node.Find(".comment-op").Length() > 0,
	}

	if msg := p.commentDeletionMessage(node); msg != "" {
		// Deleted comments keep their slot in the thread but carry no
		// author block or timestamp.
		comment.DeletionMessage = &msg
		return comment, nil
	}

	authorBlock := node.Find(".comment-author").First()
	if authorBlock.Length() == 0 {
		return nil, p.fatal("comment %d has no author block", id)
	}
	author, edited, err := p.authorBlock(authorBlock, "img.comment_useravatar")
	if err != nil {
		return nil, err
	}
	comment.Author = author
	comment.Edited = edited

	posted, err := p.popupDate(node.Find("span.popup_date").First())
	if err != nil {
		return nil, err
	}
	comment.PostedAt = &posted

	body, err := requiredFragment(node, ".comment_text")
	if err != nil {
		return nil, p.fatal("comment %d: %v", id, err)
	}
	comment.Body = body

	return comment, nil
}

// commentID reads the numeric ID from the comment's anchor element,
// whose id attribute is "cid:<n>".
func (p *page) commentID(node *goquery.Selection) (int64, error) {
	anchor := node.Find(`a[id^="` + commentAnchorPrefix + `"]`).First()
	if anchor.Length() == 0 {
		return 0, p.fatal("comment without cid anchor")
	}
	raw := strings.TrimPrefix(anchor.AttrOr("id", ""), commentAnchorPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, p.fatal("comment anchor id %q is not numeric", raw)
	}
	return id, nil
}

// commentParentID finds the reply target. The parent reference ships
// inside a commented-out HTML fragment, so each comment node's raw
// comment text is re-parsed as HTML and searched for an anchor whose
// href carries the "#cid:" prefix.
func (p *page) commentParentID(node *goquery.Selection) *int64 {
	for _, fragment := range htmlCommentFragments(node) {
		frag, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			continue
		}
		href, ok := frag.Find(`a[href^="` + parentHrefPrefix + `"]`).First().Attr("href")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(href, parentHrefPrefix), 10, 64)
		if err != nil {
			continue
		}
		return &id
	}
	return nil
}

// htmlCommentFragments collects the text of every HTML comment node
// under the selection.
func htmlCommentFragments(sel *goquery.Selection) []string {
	var fragments []string
	for _, root := range sel.Nodes {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.CommentNode {
				fragments = append(fragments, n.Data)
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
		walk(root)
	}
	return fragments
}

// commentDeletionMessage returns the deletion notice for hidden
// comments, empty otherwise. Two phrasings exist: the newer one wraps
// the message in a nested strong marker, the older one is bare block
// text.
func (p *page) commentDeletionMessage(node *goquery.Selection) string {
	block := node.Find(".comment-deleted").First()
	if block.Length() == 0 {
		return ""
	}
	if marker := block.Find("strong").First(); marker.Length() > 0 {
		return collapseText(marker.Text())
	}
	return collapseText(block.Text())
}

// latestCommentTime returns the newest comment timestamp, nil when no
// comment carries one.
func latestCommentTime(comments []journal.Comment) *time.Time {
	var latest *time.Time
	for i := range comments {
		if at := comments[i].PostedAt; at != nil {
			if latest == nil || at.After(*latest) {
				latest = at
			}
		}
	}
	return latest
}
