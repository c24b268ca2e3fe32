package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedactOptions adds header names whose values are replaced wholesale.
// Authorization, Cookie and Set-Cookie are always masked.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// JWTs first: their dot-separated segments would otherwise be eaten by
	// the looser patterns below.
	jwtRE   = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// confirmation tokens are 48 hex chars
	hexTokenRE = regexp.MustCompile(`(?i)\b[0-9a-f]{32,}\b`)
)

// Redact masks tokens and email addresses in s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return hexTokenRE.ReplaceAllString(s, "[REDACTED:token]")
}

// RedactingLogger is Logger with identities scrubbed from the path, query
// and headers. Bodies are never logged by either variant. The journal API
// installs it on the account routes, where emails and tokens travel.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	headers := func(c *gin.Context) map[string]string {
		out := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = Redact(strings.Join(vv, ", "))
		}
		return out
	}
	return accessLog(Redact, headers)
}
