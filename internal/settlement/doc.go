// ABOUTME: Settlement handler: the placement agent's callback drives capture or release
// ABOUTME: Reconciliation failures land in dedicated critical states and page a human

// Package settlement receives the placement agent's one callback per
// attempt and settles the payment hold: capture on success, release on
// failure. When the agent and the processor disagree the order lands in a
// critical state (placed_but_uncaptured, cancel_failed) and an escalation
// is issued; those states are never retried automatically.
package settlement
