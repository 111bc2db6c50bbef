// Package cli implements the ticketdesk command line.
//
// Every invocation restores the persisted session before dispatching:
//   - login --email --password: validates the credentials and starts a session.
//   - signup --email --password --confirm-password: applies the registration
//     checks and then logs in.
//   - logout: clears the session record.
//   - whoami: prints the active session and its expiry.
//   - list [--status] [--priority], show ID, create, update ID, delete ID, stats:
//     ticket commands. They require an unexpired session and fail with exit
//     code 3 otherwise.
//
// The global --output flag selects text, json or yaml rendering. Output DTOs
// live in output.go so every format shares the same field names.
package cli
