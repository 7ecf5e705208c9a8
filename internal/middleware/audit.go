package middleware

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/services"
)

const auditBodyLimit = 2000

// Credential-bearing JSON fields that must never land in the audit trail.
var maskedFields = []string{"password", "secret", "bindCredentials", "globalToken", "token"}

// AuditLog records every write operation (POST/PUT/DELETE) to the
// system_logs table with the caller, route and a masked body snippet.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = string(raw)
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
			body = maskCredentials(body)
		}

		c.Next()

		userID := GetUserID(c)
		var uid *uint
		if userID > 0 {
			uid = &userID
		}

		status := c.Writer.Status()
		outcome := "failed"
		if status >= 200 && status < 300 {
			outcome = "ok"
		}
		message := fmt.Sprintf("%s %s %s: %s", GetUsername(c), method, c.Request.URL.Path, outcome)

		services.LogInfo(auditModule(c.FullPath()), auditAction(method), message,
			uid, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   body,
			})
	}
}

// auditModule derives the log module from the route pattern, e.g.
// "/api/configuration-models/:id/rules" becomes "configuration-models".
func auditModule(fullPath string) string {
	path := strings.TrimPrefix(fullPath, "/api/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "unknown"
	}
	return path
}

func auditAction(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT":
		return "update"
	case "DELETE":
		return "delete"
	}
	return strings.ToLower(method)
}

func maskCredentials(body string) string {
	lower := strings.ToLower(body)
	for _, field := range maskedFields {
		if strings.Contains(lower, strings.ToLower(field)) {
			body = maskJSONValue(body, field)
		}
	}
	return body
}

// maskJSONValue blanks the quoted string value following "key": in a JSON
// body. Best effort only; non-string values are left as is.
func maskJSONValue(body, key string) string {
	marker := "\"" + strings.ToLower(key) + "\""
	idx := strings.Index(strings.ToLower(body), marker)
	if idx < 0 {
		return body
	}

	rest := body[idx+len(marker):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return body
	}
	valueStart := idx + len(marker) + colon + 1
	for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
		valueStart++
	}
	if valueStart >= len(body) || body[valueStart] != '"' {
		return body
	}

	endQuote := strings.IndexByte(body[valueStart+1:], '"')
	if endQuote < 0 {
		return body
	}
	return body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
}
