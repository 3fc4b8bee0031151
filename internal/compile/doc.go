// Package compile validates item and modifier selections against a live
// catalog snapshot and produces either a priced order or a typed issue list.
//
// Validation problems are values (Issue), never errors: a missing menu item
// marks that line unfulfillable and the rest of the order still compiles.
// An item with any issue is excluded from Items and from Subtotal, but its
// issues stay in the result.
//
// Result status: ready_to_execute with zero issues; unfulfillable when any
// issue has unfulfillable severity (one such item condemns the compile);
// needs_user_input otherwise. A payload that fails schema validation
// short-circuits to unfulfillable with a single invalid_payload issue before
// any catalog lookup.
//
// All money math rounds half away from zero to 2 decimals (Round2) at every
// accumulation step, so recompiling identical selections against an
// unchanged snapshot reproduces the identical subtotal.
package compile
