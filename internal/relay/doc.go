// ABOUTME: Status relay: inbound restaurant texts become order breadcrumbs
// ABOUTME: Purely informational; never drives the order state machine

// Package relay consumes carrier messages sent to the restaurant-facing
// number, parses them for a fulfillment status and optional confirmation
// number, attaches the result to the best-matching active order and
// forwards a guest-facing translation. Everything here is informational:
// Order.status is owned by checkout and settlement, never by the relay.
package relay
