// Package documents stores files attached to assets, work orders, parts
// and inspections. Content lives in a BlobStore (a directory tree by
// default); metadata with size, SHA-256 and optional expiry lives in the
// database.
package documents
