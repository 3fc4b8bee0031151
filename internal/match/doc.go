// Package match turns free-form guest order text into scored catalog
// candidates and a single restaurant scope.
//
// # Pipeline
//
//  1. ParseLines splits the message on clause separators (",", ";",
//     newlines, "then", "plus", stand-alone "and"), strips leading request
//     filler ("can I get", "I'd like"), extracts an optional leading
//     quantity ("2 " or "2x ", defaulting to 1) and normalizes the rest.
//  2. Each line is scored against every catalog item with fixed constants:
//     exact name +120, phrase containment +60, name token +18, description
//     token +7, a coverage bonus up to +20, and a bounded ±22 semantic
//     adjustment from an explicit rule table for known ambiguous categories
//     (a bare "salad" request leans entrée, away from deli spreads).
//  3. The restaurant covering the most lines wins; ties break by summed top
//     scores, then restaurant id lexical order.
//
// Everything here is deterministic: the same text against the same catalog
// always produces the same candidates in the same order. Candidates are
// request-scoped and never persisted.
package match
