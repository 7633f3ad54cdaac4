package httputil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MaxLimit is the largest page size any listing endpoint returns.
const MaxLimit = 100

// ParsePagination parses the offset (default 0) and limit (default 50, at most MaxLimit)
// query parameters.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err = ParseLimit(c, 50)
	if err != nil {
		return 0, 0, err
	}

	return offset, limit, nil
}

// ParseLimit parses the optional limit query parameter, falling back to def.
func ParseLimit(c *gin.Context, def int) (int, error) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}

// ParseTimeRange parses the optional start and end RFC3339 query parameters into Unix
// milliseconds. A missing bound is 0, meaning open.
func ParseTimeRange(c *gin.Context) (start, end int64, err error) {
	if start, err = parseMillis(c, "start"); err != nil {
		return 0, 0, err
	}
	if end, err = parseMillis(c, "end"); err != nil {
		return 0, 0, err
	}
	if start != 0 && end != 0 && start > end {
		return 0, 0, fmt.Errorf("start must be before or equal to end")
	}
	return start, end, nil
}

func parseMillis(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)", name)
	}
	return parsed.UTC().UnixMilli(), nil
}
