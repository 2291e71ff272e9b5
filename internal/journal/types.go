// Package journal defines core types shared across subsystems.
package journal

import (
	"time"
)

// Outcome tags the result of classifying one fetched document.
type Outcome string

// Classification outcomes, in the order the classifier checks them.
const (
	OutcomeIncomplete      Outcome = "incomplete"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeSystemError     Outcome = "system_error"
	OutcomeAccountPrivate  Outcome = "account_private"
	OutcomeAccountDisabled Outcome = "account_disabled"
	OutcomePendingDeletion Outcome = "pending_deletion"
	OutcomeOK              Outcome = "ok"
)

// Classification is the tagged result of parsing one journal page.
// Exactly one outcome is active; the auxiliary fields are populated
// only for the outcome that uses them.
type Classification struct {
	Outcome Outcome

	// Message carries the page's error text for OutcomeNotFound and
	// OutcomeSystemError.
	Message string

	// DisabledUsername is set for OutcomeAccountDisabled.
	DisabledUsername string

	// DeletionRequestor is "its owner" or "the administration" for
	// OutcomePendingDeletion.
	DeletionRequestor string

	// Record is populated only for OutcomeOK.
	Record *StructuredRecord

	// LoginUser is the session identity the page was rendered for, when
	// the page shows a logged-in header. Populated for any outcome.
	LoginUser string
}

// RawArtifact is one fetched page, as written to the artifact cache.
type RawArtifact struct {
	JournalID int64
	FetchedAt time.Time
	Bytes     []byte
}

// StructuredRecord is the extracted payload for a viable journal page.
// Field names follow the archive's persisted JSON schema; timestamps
// serialize as RFC 3339.
type StructuredRecord struct {
	JournalID           int64      `json:"journal_id"`
	Title               string     `json:"title"`
	Header              *string    `json:"journal_header"`
	Body                string     `json:"journal_body"`
	Footer              *string    `json:"journal_footer"`
	Author              Author     `json:"author"`
	CommentsDisabled    bool       `json:"comments_disabled"`
	Comments            []Comment  `json:"comments"`
	NumComments         int        `json:"num_comments"`
	LatestCommentPosted *time.Time `json:"latest_comment_posted_at"`
	Link                string     `json:"link"`
	PostedAt            time.Time  `json:"posted_at"`
	SiteStatus          SiteStatus `json:"site_status"`
}

// Author is the identity block for the journal author or a commenter.
type Author struct {
	DisplayName         string     `json:"display_name"`
	Username            string     `json:"username"`
	Avatar              string     `json:"avatar"`
	StatusPrefix        string     `json:"status_prefix"`
	StatusPrefixMeaning string     `json:"status_prefix_meaning"`
	Badges              []Badge    `json:"badges"`
	UserTitle           string     `json:"user_title"`
	RegisteredAt        *time.Time `json:"registered_at"`
}

// Badge is one user icon parsed from the markers around a username.
type Badge struct {
	Position  string `json:"position"`
	Title     string `json:"title"`
	ClassType string `json:"class_type"`
	ImageURL  string `json:"image_url"`
}

// Comment is one entry of the flat comment thread.
type Comment struct {
	CommentID       int64      `json:"comment_id"`
	ParentID        *int64     `json:"parent_id"`
	DeletionMessage *string    `json:"deletion_message"`
	Author          *Author    `json:"author"`
	PostedAt        *time.Time `json:"posted_at"`
	Body            string     `json:"comment_body"`
	IsOP            bool       `json:"is_op"`
	Edited          bool       `json:"edited"`
}

// SiteStatus is the site-wide concurrency snapshot stamped on every
// rendered page.
type SiteStatus struct {
	ServerTimeAt time.Time    `json:"fa_server_time_at"`
	Online       OnlineCounts `json:"online"`
}

// OnlineCounts breaks down the site's reported online users.
type OnlineCounts struct {
	Total      int `json:"total"`
	Guests     int `json:"guests"`
	Registered int `json:"registered"`
	Other      int `json:"other"`
}

// PersistedRecord is the record store's row for one journal ID.
// Exactly one of the error path (IsDeleted, ErrorKind) and PayloadJSON
// holds; upserts replace the whole row.
type PersistedRecord struct {
	JournalID    int64
	IsDeleted    bool
	ArchivedAt   time.Time
	ErrorKind    *string
	IdentityUsed *string
	PayloadJSON  *string
}

// Credentials is an optional cookie pair granting registered-user
// access during a fetch.
type Credentials struct {
	CookieA string
	CookieB string
}

// Empty reports whether no credentials are configured.
func (c Credentials) Empty() bool {
	return c.CookieA == "" && c.CookieB == ""
}
