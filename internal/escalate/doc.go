// ABOUTME: Escalation builder: turns reconciliation failures into human-actionable pages
// ABOUTME: Read-only summarizer; runs even when catalog and processor are down

// Package escalate builds and delivers human-actionable summaries when
// automated settlement cannot reconcile an order with its payment. The
// builder is a pure function over already-recorded data; it never reads
// the catalog or calls the payment processor, so it keeps working when
// upstream systems are degraded.
package escalate
