package audit

import "time"

// TimelineFilters narrows the audit timeline.
type TimelineFilters struct {
	From         time.Time
	To           time.Time
	ActorID      int64
	Action       string
	ResourceType string
	ResourceID   string
	Page         int
	PageSize     int
}

// TimelineRow is one persisted audit entry.
type TimelineRow struct {
	ID           int64          `json:"id"`
	At           time.Time      `json:"at"`
	ActorID      int64          `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries simple page navigation.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
