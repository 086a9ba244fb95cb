// Package comment defines the comment row and its identifier.
package comment

import (
	"strings"
	"time"
)

// Status is the moderation state stored with a comment.
type Status int16

const (
	StatusNormal  Status = 0
	StatusDeleted Status = 1
	StatusSpam    Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusDeleted:
		return "deleted"
	case StatusSpam:
		return "spam"
	default:
		return "unknown"
	}
}

// StatusFilter selects which moderation states a query returns.
type StatusFilter int

const (
	FilterAll StatusFilter = iota
	FilterNormal
	FilterReported // normal status with at least one report
	FilterDeleted
	FilterSpam
)

func (f StatusFilter) String() string {
	switch f {
	case FilterAll:
		return "all"
	case FilterNormal:
		return "normal"
	case FilterReported:
		return "reported"
	case FilterDeleted:
		return "deleted"
	case FilterSpam:
		return "spam"
	default:
		return "unknown"
	}
}

// ParseStatusFilter maps the lowercase names returned by String back to filters.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, true
	case "normal":
		return FilterNormal, true
	case "reported":
		return FilterReported, true
	case "deleted":
		return FilterDeleted, true
	case "spam":
		return FilterSpam, true
	}
	return FilterAll, false
}

// Match reports whether a row with the given status and report count passes f.
func (f StatusFilter) Match(status Status, reports int) bool {
	switch f {
	case FilterNormal:
		return status == StatusNormal
	case FilterReported:
		return status == StatusNormal && reports > 0
	case FilterDeleted:
		return status == StatusDeleted
	case FilterSpam:
		return status == StatusSpam
	default:
		return true
	}
}

// Comment is a single stored comment.
type Comment struct {
	ID          ID        `json:"id"`
	ParentID    *ID       `json:"parent_id,omitempty"`
	PageID      int64     `json:"page_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Status      Status    `json:"status"`
	ReportCount int       `json:"report_count"`
	CreatedAt   time.Time `json:"created_at"`

	// parent is only set by a fetch that also loaded the parent row.
	parent *Comment
	erased bool
}

// Parent returns the in-memory parent resolved by the fetch that produced c,
// or nil when the parent was not part of that fetch.
func (c *Comment) Parent() *Comment { return c.parent }

// SetParent links c to p. It is used by the fetch that owns both values.
func (c *Comment) SetParent(p *Comment) { c.parent = p }

// IsRoot reports whether c starts a thread.
func (c *Comment) IsRoot() bool { return c.ParentID == nil }

// Valid is false once the comment's row has been erased through this value.
func (c *Comment) Valid() bool { return !c.erased }

// MarkErased flags c as removed from storage.
func (c *Comment) MarkErased() { c.erased = true }

// Reported reports whether c counts as reported for moderation listings.
func (c *Comment) Reported() bool {
	return c.Status == StatusNormal && c.ReportCount > 0
}
