// Package dynamock provides test doubles for deltamap engines: a
// function-field mock of the store client for unit tests, and helpers for
// running against DynamoDB Local in integration tests.
package dynamock
