package models

// FeedItem is a post decorated with the viewer's relationship flags.
type FeedItem struct {
	*Post
	IsLiked           bool `json:"isLiked"`
	IsSaved           bool `json:"isSaved"`
	IsFollowingAuthor bool `json:"isFollowingAuthor"`
}

// PageInfo describes an offset-paginated result.
type PageInfo struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	TotalItems int64 `json:"totalItems"`
	PageSize   int   `json:"pageSize"`
}

// SortMode selects the feed ordering.
type SortMode string

const (
	SortRecent   SortMode = "recent"
	SortPopular  SortMode = "popular"
	SortViews    SortMode = "views"
	SortComments SortMode = "comments"
)

// ParseSortMode maps a query value to a SortMode. Empty means recent.
func ParseSortMode(s string) (SortMode, bool) {
	switch SortMode(s) {
	case "", SortRecent:
		return SortRecent, true
	case SortPopular, SortViews, SortComments:
		return SortMode(s), true
	}
	return "", false
}

// Ranked reports whether the mode uses offset pagination.
func (m SortMode) Ranked() bool {
	return m == SortPopular || m == SortViews || m == SortComments
}
