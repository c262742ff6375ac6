package defensio

import (
	"net/url"
	"strings"
)

// Resource names under /<version>/users/<key>.
const (
	ActionDocuments       = "documents"
	ActionBasicStats      = "basic-stats"
	ActionExtendedStats   = "extended-stats"
	ActionProfanityFilter = "profanity-filter"
)

// BuildPath returns the versioned, key-scoped path of a resource:
//
//	/<apiVersion>/users/<apiKey>[/<action>[/<id>]].<format>
//
// An empty action or id is left out. Segments are path-escaped.
func BuildPath(apiVersion, apiKey, action, id, format string) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(url.PathEscape(apiVersion))
	b.WriteString("/users/")
	b.WriteString(url.PathEscape(apiKey))
	if action != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(action))
	}
	if id != "" {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(id))
	}
	b.WriteByte('.')
	b.WriteString(format)
	return b.String()
}
