// Package gateway wires the order pipeline into one HTTP service.
//
// # Overview
//
// The gateway owns the HTTP server and the component graph: catalog
// loading, request matching, order compilation, checkout, the payment
// webhook, the placement callback, the carrier webhook and the outbox
// consumer that hands placement jobs to the external agent.
//
// # Endpoints
//
//   - POST /api/orders/match      free-text request matching
//   - POST /api/orders/compile    canonical selections against the live catalog
//   - POST /api/orders/checkout   compile + authorize + persist the order
//   - GET  /api/orders/{id}       order with its event log
//   - POST /callbacks/placement   placement agent settlement callback
//   - POST /webhooks/payments     signed payment-processor events
//   - POST /webhooks/carrier      restaurant status texts
//   - GET  /healthz               liveness
//   - GET  /healthz/ready         readiness (database reachable)
package gateway
