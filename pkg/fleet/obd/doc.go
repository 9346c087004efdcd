// Package obd parses OBD-II diagnostic trouble codes and records the codes
// assets report.
//
// Codes are five characters: a system letter (P powertrain, C chassis,
// B body, U network), a digit 0-3 telling SAE generic codes from
// manufacturer ones, and three hex digits. DecodeMode03 reads the same
// codes from the two-byte encoding an ELM327 adapter returns for mode 03.
package obd
