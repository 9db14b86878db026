// services/respond.go
package services

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// listMeta is the meta block of every list envelope.
type listMeta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

func respondList(c *fiber.Ctx, data interface{}, meta listMeta) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

// parsePagination reads limit/offset query params with a hard cap on limit.
func parsePagination(c *fiber.Ctx, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if s := c.Query("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// resolveSort maps a user-supplied sortBy onto an allow-listed column.
// User input never reaches the ORDER BY clause directly.
func resolveSort(requested, fallback string, allowed map[string]bool) (column string, ok bool) {
	if requested == "" {
		return fallback, true
	}
	if allowed[requested] {
		return requested, true
	}
	return "", false
}
