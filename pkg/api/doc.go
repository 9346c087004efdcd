// Package api is the JSON HTTP interface of depot, mounted under /api/v1.
//
// Every handler follows the same steps: the middleware chain has already
// authenticated the caller and checked its role; the handler decodes and
// validates the body with httpx.Decode, calls one service method and writes
// the result with httpx.WriteJSON or the error with httpx.WriteError.
//
// Role requirements:
//
//	viewer      all reads, form previews, DTC lookups
//	technician  meters, locations, DTC ingestion, inspections, fuel,
//	            work order progress, form submissions, document uploads
//	manager     asset, part, work order, form, geofence and schedule
//	            management, stock adjustments, maintenance runs
//	admin       users and the audit log
package api
