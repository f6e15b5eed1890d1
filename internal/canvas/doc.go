// Package canvas implements a typed client for the Canvas LMS REST API.
//
// # Client
//
// [Client] wraps an OAuth2 bearer-token HTTP client with the per-call timeout,
// request throttle and extra header bundle taken from configuration. Every
// operation is one authenticated request; paged listings return the rel="next"
// continuation URL from the platform's Link header so callers can walk pages
// to exhaustion.
//
// # Impersonation
//
// Preference operations act on behalf of the target user through the
// platform's as_user_id masquerade parameter, which is how an administrative
// token updates another user's settings. A globally configured act_as id is
// attached to every other request when set.
//
// # Error Handling
//
// Non-2xx responses become [*APIError] values carrying the HTTP status, the
// platform's error message and a rate-limit marker (the platform signals
// throttling either with 429 or with a 403 whose body names the rate limit).
// Transport failures and per-call timeouts are returned wrapped, with the
// context error preserved for callers to classify.
package canvas
