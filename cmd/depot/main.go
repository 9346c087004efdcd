// Depot is the fleet maintenance back office: assets, work orders, parts,
// inspections, custom forms, geofences, fuel, documents and preventive
// maintenance behind one HTTP API.
//
// Usage:
//
//	# Start the API server
//	depot run --config depot.yaml
//
//	# Apply schema migrations
//	depot migrate
//
//	# Create the first administrator
//	depot user create --email admin@example.com --name Admin --role admin --password-stdin
//
//	# Check a form definition and evaluate it against sample values
//	depot form validate pre-trip.yaml
//	depot form eval pre-trip.yaml values.json
//
//	# Decode trouble codes
//	depot dtc decode P0301 C0035
//	depot dtc decode --mode03 "43 01 33 00 00 00 00"
//
//	# Generate due maintenance work orders once
//	depot maintenance run
//
//	# Export to CSV
//	depot export assets --out assets.csv
package main

import "os"

func main() {
	os.Exit(Execute())
}
