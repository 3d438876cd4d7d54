package shared

import (
	"net/url"
	"strconv"
)

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from query values. Missing values fall back
// to defaultLimit and zero; limit is capped at maxLimit.
func ParsePage(values url.Values, defaultLimit, maxLimit int) (Page, error) {
	page := Page{Limit: defaultLimit}
	fields := make(map[string]string)
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fields["limit"] = "must be a positive integer"
		} else {
			page.Limit = n
		}
	}
	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["offset"] = "must be a non-negative integer"
		} else {
			page.Offset = n
		}
	}
	if len(fields) > 0 {
		return Page{}, NewValidationError(fields)
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page, nil
}
