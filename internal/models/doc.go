// Package models defines the core domain models for Splitwiser.
//
// # Ledger Models
//
//   - Expense: a payment made by one user on behalf of a set of participants
//   - Split: one participant's share of an expense (embedded in Expense)
//   - Obligation: a directed debt (debtor owes creditor) derived from a split
//
// Net balances are never stored. They are recomputed from pending
// obligations on every query (see internal/calculator).
//
// # Collaborator Models
//
//   - User: a registered account; its ID is the identity used by the ledger
//   - Group: a set of users with admin/member roles, used for authorization
//
// # Conventions
//
// 1. Money is github.com/shopspring/decimal, never float64
// 2. Timestamps are Unix seconds (int64); zero means unset
// 3. Relationships use ID strings instead of pointers
package models
