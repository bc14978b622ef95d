// Package binder reads HTTP request bodies. JSON decodes bounded
// application/json bodies into structs; RawBody returns the exact bytes for
// callers that must verify a signature before parsing.
package binder
