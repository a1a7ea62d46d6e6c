// Package userstore implements the User & Permission Store (spec.md
// §4.3): a bbolt-backed store of users, argon2id password hashes, and
// roles, plus the role-DAG permission check.
package userstore
