package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/service"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// respondError maps service errors onto the HTTP error taxonomy.
// Validation errors and not-found are the caller's fault; anything
// unrecognized is a 500 with a generic body.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// idParam parses the numeric :id path parameter.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// pageParams reads limit/offset pagination query parameters.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// pageResponse is the envelope for paginated list endpoints.
type pageResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func buildPage(c *gin.Context, count int64, limit, offset int, results interface{}) pageResponse {
	page := pageResponse{Count: count, Results: results}
	if int64(offset+limit) < count {
		page.Next = pageURL(c, limit, offset+limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		page.Previous = pageURL(c, limit, prev)
	}
	return page
}

func pageURL(c *gin.Context, limit, offset int) *string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// boolQuery treats "1" and "true" as set.
func boolQuery(c *gin.Context, key string) bool {
	v := c.Query(key)
	return v == "1" || v == "true"
}

// recipesLimitQuery reads the optional recipes_limit cap on author
// cards; 0 means uncapped.
func recipesLimitQuery(c *gin.Context) int {
	if raw := c.Query("recipes_limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

func attachmentHeader(filename string) string {
	return fmt.Sprintf("attachment; filename=%s", url.QueryEscape(filename))
}
