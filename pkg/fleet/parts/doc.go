// Package parts tracks the parts inventory. Every stock change is written
// to inventory_transactions and stock never goes negative.
package parts
