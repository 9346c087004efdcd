// Package workorders manages maintenance and repair work orders.
//
// Work orders are numbered WO-000001, WO-000002, ... from a database
// sequence and move through a fixed status machine:
//
//	open        -> in_progress | on_hold | cancelled
//	in_progress -> on_hold | completed | cancelled
//	on_hold     -> in_progress | cancelled
//
// Completed and cancelled are terminal. Other services create work orders
// with CreateTx inside their own transaction and subscribe to closings with
// OnClose.
package workorders
