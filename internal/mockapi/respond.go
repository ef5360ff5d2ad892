package mockapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"contesthub/internal/api"
	"contesthub/internal/auth"
	"contesthub/internal/validation"
)

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// failFields writes the {message, errors:[{path, message}]} validation shape.
func failFields(c *gin.Context, fields validation.FieldErrors) {
	list := make([]api.FieldError, 0, len(fields))
	for path, msg := range fields {
		list = append(list, api.FieldError{Path: path, Message: msg})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": list})
}

// bind decodes the JSON body into req and validates it. It writes the error
// response and returns false on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validation.Struct(req); err != nil {
		if fields := validation.Fields(err); fields != nil {
			failFields(c, fields)
		} else {
			fail(c, http.StatusBadRequest, err.Error())
		}
		return false
	}
	return true
}

func caller(c *gin.Context) auth.Claims {
	return auth.ClaimsFrom(c)
}
