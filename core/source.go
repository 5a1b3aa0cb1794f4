package core

import (
	"net/url"
	"strings"
)

// NormalizeSourceURL canonicalizes external URLs so that already-seen
// papers and repositories are consistently recognized.
//
// Papers hosted on arxiv.org normalize to https://arxiv.org/abs/<id>.
// Repositories hosted on github.com normalize to https://github.com/<owner>/<repo>.
// Anything else is returned trimmed but otherwise unchanged.
func NormalizeSourceURL(kind ItemKind, sourceURL string) string {
	raw := strings.TrimSpace(sourceURL)
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(parsed.Hostname())

	if kind == KindPaper && strings.Contains(host, "arxiv.org") {
		path := parsed.Path
		after := strings.TrimPrefix(path, "/")
		if i := strings.Index(path, "/abs/"); i >= 0 {
			after = path[i+len("/abs/"):]
		} else if i := strings.Index(path, "/pdf/"); i >= 0 {
			// PDF links point at the same paper as the abstract page.
			after = strings.TrimSuffix(path[i+len("/pdf/"):], ".pdf")
		}
		after = strings.Trim(after, "/")
		if after == "" {
			return "https://arxiv.org/abs"
		}
		return "https://arxiv.org/abs/" + after
	}

	if kind == KindRepository && strings.Contains(host, "github.com") {
		parts := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
		if len(parts) >= 2 {
			return "https://github.com/" + parts[0] + "/" + parts[1]
		}
	}

	return raw
}

// ItemID derives the stable identifier for a source. The same kind and URL
// always map to the same ID, which makes re-ingestion an upsert rather
// than a duplicate.
func ItemID(kind ItemKind, sourceURL string) ID {
	normalized := NormalizeSourceURL(kind, sourceURL)
	return IDFromContent(kind.String() + ":" + normalized)
}
