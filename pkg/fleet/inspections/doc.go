// Package inspections records checklist inspections of assets and opens
// follow-up work orders for failed items.
package inspections
