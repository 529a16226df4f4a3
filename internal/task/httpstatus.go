package task

// httpStatusTextFallback is consulted when a navigation response does not
// supply its own status text. Unknown codes fall through to "" in
// HTTPStatusTextOrFallback; NewHTTPError already renders "HTTP {code}" for an
// empty text, so there is nothing further to fall back to here.
var httpStatusTextFallback = map[int]string{
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	429: "Too Many Requests",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// HTTPStatusTextOrFallback returns text unchanged if non-empty, otherwise the
// fixed fallback table entry for code, or "" if code is unknown to the
// table — callers pass that empty string straight to NewHTTPError, which
// already renders the bare "HTTP {code}" form itself.
func HTTPStatusTextOrFallback(code int, text string) string {
	if text != "" {
		return text
	}
	return httpStatusTextFallback[code]
}
