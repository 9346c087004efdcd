// Package fuel records fuel purchases and computes consumption statistics.
package fuel
