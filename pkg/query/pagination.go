package query

// Pagination summarizes the page window returned alongside list results.
// Next and Prev are present only when that page exists.
type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	Limit         int  `json:"limit"`
	NumberOfPages int  `json:"numberOfPages"`
	Next          *int `json:"next,omitempty"`
	Prev          *int `json:"prev,omitempty"`
}

// Paginate computes the summary for a plan given the number of matching documents.
func (plan Plan) Paginate(count int64) Pagination {
	limit := plan.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	page := plan.Page
	if page < 1 {
		page = defaultPage
	}
	page = min(page, pageCeiling(limit))
	summary := Pagination{CurrentPage: page, Limit: limit}
	if count > 0 {
		summary.NumberOfPages = int((count-1)/int64(limit) + 1)
	}
	if int64(page)*int64(limit) < count {
		next := page + 1
		summary.Next = &next
	}
	if page > 1 {
		prev := page - 1
		summary.Prev = &prev
	}
	return summary
}
