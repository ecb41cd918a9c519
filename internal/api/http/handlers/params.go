package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/query"
)

// parseListOptions reads page, page_size, order_by and order from the
// query string.
func parseListOptions(c *fiber.Ctx) query.Options {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntQuery(c, "page_size", query.DefaultLimit)
	opts := query.Options{
		OrderBy: c.Query("order_by"),
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	}
	if opts.OrderBy != "" {
		opts.Desc = !strings.EqualFold(c.Query("order"), "asc")
	}
	return opts
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func listResponse[T any](items []T, opts query.Options) fiber.Map {
	return fiber.Map{
		"data": items,
		"meta": fiber.Map{"count": len(items), "limit": opts.Limit, "offset": opts.Offset},
	}
}
