// Package maintenance turns recurring service intervals into work orders.
//
// A schedule tracks when its asset was last serviced and at which meter
// readings. Run compares every active schedule against the asset's
// current odometer and engine hours and the calendar, and opens one work
// order (source "schedule") per schedule that has fallen due. The
// schedule stays linked to that work order until it closes: completion
// records a new service at the asset's meters, cancellation just frees
// the schedule to generate again.
//
// Scheduler drives Run from a cron expression.
package maintenance
