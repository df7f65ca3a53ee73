// Package http provides HTTP handlers and middleware for the lab API.
//
// Every request passes through RequestLogger and Authenticate. The session
// is read from the "session" cookie or from an `Authorization: Bearer id:secret`
// header; routes then demand a tier with RequireTier (RO, RW or admin).
//
// Times on the wire are unix seconds and are accepted as JSON numbers or
// numeric strings. Errors are rendered as
// {"error": "...", "issues": ["..."], "errors": {"field": "..."}}.
//
// The router exposes:
//   - GET /ping
//   - GET /audits?date=&user=, POST /audits, PATCH /audits, POST /audits/toggle,
//     GET/PATCH/DELETE /audits/{id}
//   - GET /bookings?date=&user=&location=, POST /bookings,
//     GET/POST/DELETE /bookings/{id}
//   - GET /events, POST /events, GET/POST/DELETE /events/{id}
//   - GET /locations, POST /locations, GET/PATCH/POST/DELETE /locations/{id},
//     GET /locations/{id}/people, POST /locations/{id}/ring, GET /locations/{id}/listen
//   - GET /tokens, POST /tokens, GET/DELETE /tokens/{id}
//   - GET /user, GET /users, GET/DELETE /user/session
//   - GET /config, PATCH /config
//
// Request/response DTOs live alongside their respective handlers.
package http
