// Package subscriptions is the HTTP surface of the billing service: checkout
// and portal sessions, cancellation, record queries and the processor
// webhook endpoint, plus health and metrics routes.
package subscriptions
