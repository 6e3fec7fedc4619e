// Package line talks to the LINE Messaging API: it downloads message
// content, sends text replies and verifies and models inbound webhooks.
//
// Content is read from the data endpoint as a stream and accumulated in the
// order received. Replies carry at most five messages per request; longer
// replies continue as push messages to the event source.
package line
