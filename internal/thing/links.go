package thing

import "strings"

// Link relation and media type constants.
const (
	relProperties = "properties"
	relActions    = "actions"
	relEvents     = "events"
	relAlternate  = "alternate"

	mediaTypeHTML = "text/html"
)

// deriveLinks computes the full link set for a thing.
//
// The link set is a pure function of the thing's href, the optional UI
// href override, the links carried in the input description, and an
// optional request context. It is recomputed on every call and never
// stored, so it cannot drift from the thing's fields.
//
// Base links point at the property/action/event collections relative to
// href. The HTML alternate link target is resolved in precedence order:
// an explicit override supplied at construction, else the first HTML
// alternate link in the input description whose href carries a scheme
// prefix, else the thing's own href. When a request context is present,
// one additional websocket alternate link is appended last.
func deriveLinks(href, uiHref string, descLinks []Link, rc *RequestContext) []Link {
	links := []Link{
		{Rel: relProperties, Href: href + "/properties"},
		{Rel: relActions, Href: href + "/actions"},
		{Rel: relEvents, Href: href + "/events"},
		{Rel: relAlternate, Href: alternateHref(href, uiHref, descLinks), MediaType: mediaTypeHTML},
	}

	if rc != nil && rc.Host != "" {
		scheme := "ws"
		if rc.Secure {
			scheme = "wss"
		}
		links = append(links, Link{
			Rel:  relAlternate,
			Href: scheme + "://" + rc.Host + href,
		})
	}

	return links
}

// alternateHref resolves the target of the HTML alternate link.
func alternateHref(href, uiHref string, descLinks []Link) string {
	if uiHref != "" {
		return uiHref
	}
	for _, l := range descLinks {
		if l.Rel == relAlternate && l.MediaType == mediaTypeHTML && hasSchemePrefix(l.Href) {
			return l.Href
		}
	}
	return href
}

// hasSchemePrefix reports whether href is absolute (scheme-qualified)
// rather than a gateway-relative path.
func hasSchemePrefix(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

// parseDescLinks extracts the link list from a raw input description.
// Malformed entries are skipped rather than rejected; the description's
// links are advisory input to alternate-link resolution only.
func parseDescLinks(desc Description) []Link {
	raw, ok := desc["links"].([]any)
	if !ok {
		return nil
	}

	var links []Link
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		var l Link
		if rel, ok := m["rel"].(string); ok {
			l.Rel = rel
		}
		if href, ok := m["href"].(string); ok {
			l.Href = href
		}
		if mt, ok := m["mediaType"].(string); ok {
			l.MediaType = mt
		}
		if l.Href == "" {
			continue
		}
		links = append(links, l)
	}
	return links
}
