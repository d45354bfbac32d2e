// Package query evaluates saved view filters against records and orders the
// result.
//
// The pieces compose in a fixed pipeline ([FilterAndSort]):
//
//  1. records in the pending lifecycle state are dropped
//  2. partition rules (completed, receivedVerification) are applied
//  3. the free-text search term is matched against [SearchFields]
//  4. the status filter is applied unless it is "all"
//  5. the view's clauses are folded left to right ([Combine])
//  6. when a sort field is set the result is stable-sorted ([Compare])
//
// Clause combination is a strict left-to-right fold with no precedence:
// saved filter sets depend on it, so "A and B or C" means (A and B) or C.
package query
