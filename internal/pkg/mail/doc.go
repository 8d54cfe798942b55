// Package mail abstracts outbound email delivery.
//
// The auth module uses it to deliver one-time codes; delivery failures must
// surface synchronously to the caller, so implementations never queue.
package mail
