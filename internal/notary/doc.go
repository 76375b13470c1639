// Package notary submits a signed archive to Apple's notarization service
// and polls it to a terminal verdict.
//
// The service speaks only line-oriented text, so all response interpretation
// lives in two pure pattern extractors (ExtractRequestID, Classify) that the
// poll loop consumes. The loop itself is bounded: a fixed sleep between
// status queries and a hard attempt ceiling, because the service offers no
// push notification.
package notary
