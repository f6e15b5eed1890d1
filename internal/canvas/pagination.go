package canvas

import "strings"

// parseNextLink extracts the rel="next" URL from a Link response header.
// The platform paginates every listing endpoint this way; an empty result
// means the final page was reached.
//
// Header form: <https://host/api/v1/...?page=2>; rel="next", <...>; rel="last"
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}

		urlPart := strings.TrimSpace(section[0])
		if !strings.HasPrefix(urlPart, "<") || !strings.HasSuffix(urlPart, ">") {
			continue
		}

		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(urlPart, "<>")
			}
		}
	}

	return ""
}
