package model

import "time"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows listBookings. Empty fields do not filter.
type Filter struct {
	Types          []BookingType
	Statuses       []BookingStatus
	From           *time.Time
	To             *time.Time
	SpaceName      string
	Search         string
	IncludeDeleted bool
}

// Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageResult struct {
	Items      []Booking `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

func NewPageResult(items []Booking, total int, p Page) PageResult {
	if items == nil {
		items = []Booking{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return PageResult{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}

type Stats struct {
	Total                int     `json:"total"`
	Confirmed            int     `json:"confirmed"`
	Pending              int     `json:"pending"`
	Cancelled            int     `json:"cancelled"`
	TotalRevenue         float64 `json:"total_revenue"`
	AverageDurationHours float64 `json:"average_duration_hours"`
}
