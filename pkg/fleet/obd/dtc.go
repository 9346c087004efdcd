package obd

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"fleetworks/depot/pkg/apperr"
)

// System is the vehicle system a trouble code belongs to.
type System string

const (
	SystemPowertrain System = "powertrain"
	SystemChassis    System = "chassis"
	SystemBody       System = "body"
	SystemNetwork    System = "network"
)

var systemByLetter = map[byte]System{
	'P': SystemPowertrain,
	'C': SystemChassis,
	'B': SystemBody,
	'U': SystemNetwork,
}

var dtcPattern = regexp.MustCompile(`^[PCBU][0-3][0-9A-F]{3}$`)

// DTC is a parsed OBD-II diagnostic trouble code.
type DTC struct {
	Code        string `json:"code"`
	System      System `json:"system"`
	Generic     bool   `json:"generic"`
	Subsystem   string `json:"subsystem,omitempty"`
	Description string `json:"description,omitempty"`
}

// ValidCode reports whether s is a well-formed trouble code such as P0301.
func ValidCode(s string) bool {
	return dtcPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseDTC parses a five-character trouble code. Lower case is accepted.
func ParseDTC(s string) (DTC, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !dtcPattern.MatchString(code) {
		return DTC{}, apperr.Invalid("invalid trouble code %q", s)
	}
	d := DTC{
		Code:        code,
		System:      systemByLetter[code[0]],
		Generic:     generic(code),
		Description: descriptions[code],
	}
	if d.System == SystemPowertrain {
		d.Subsystem = powertrainGroups[code[2]]
	}
	return d, nil
}

// generic reports whether the code is SAE-defined rather than
// manufacturer specific. P3 splits at P34.
func generic(code string) bool {
	switch code[1] {
	case '0', '2':
		return true
	case '3':
		return code[0] == 'P' && code[2] >= '4' && code[2] <= '9'
	}
	return false
}

// ParseDTCs parses a list of codes separated by commas, semicolons or
// whitespace. Duplicates are dropped and input order is kept.
func ParseDTCs(s string) ([]DTC, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]DTC, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	var invalid []string
	for _, f := range fields {
		d, err := ParseDTC(f)
		if err != nil {
			invalid = append(invalid, f)
			continue
		}
		if seen[d.Code] {
			continue
		}
		seen[d.Code] = true
		out = append(out, d)
	}
	if len(invalid) > 0 {
		return nil, apperr.Invalid("invalid trouble codes: %s", strings.Join(invalid, ", "))
	}
	return out, nil
}

// DecodeMode03 decodes the response of an ELM327 adapter to a mode 03
// (stored trouble codes) request, for example "43 01 33 00 00 00 00".
// Each response line starts with 0x43 and carries two bytes per code;
// CAN adapters add a code count after the mode byte. Empty slots (0000)
// and the "NO DATA" reply produce no codes.
func DecodeMode03(raw string) ([]DTC, error) {
	var out []DTC
	seen := map[string]bool{}

	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' || r == '>' }) {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		if upper == "" || upper == "NO DATA" || strings.HasPrefix(upper, "SEARCHING") {
			continue
		}

		b, err := hex.DecodeString(strings.NewReplacer(" ", "", "\t", "").Replace(line))
		if err != nil {
			return nil, apperr.Invalid("mode 03 response is not hex: %q", line)
		}
		if len(b) == 0 || b[0] != 0x43 {
			return nil, apperr.Invalid("not a mode 03 response: %q", line)
		}
		payload := b[1:]
		if len(payload)%2 == 1 {
			count := int(payload[0])
			payload = payload[1:]
			if count*2 < len(payload) {
				payload = payload[:count*2]
			}
		}

		for i := 0; i+1 < len(payload); i += 2 {
			if payload[i] == 0 && payload[i+1] == 0 {
				continue
			}
			d, err := ParseDTC(codeFromBytes(payload[i], payload[i+1]))
			if err != nil {
				return nil, err
			}
			if !seen[d.Code] {
				seen[d.Code] = true
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// codeFromBytes renders the two-byte SAE J2012 encoding of a code.
func codeFromBytes(a, b byte) string {
	return fmt.Sprintf("%c%d%X%X%X", "PCBU"[a>>6], (a>>4)&0x03, a&0x0F, b>>4, b&0x0F)
}

var powertrainGroups = map[byte]string{
	'0': "fuel and air metering and auxiliary emission controls",
	'1': "fuel and air metering",
	'2': "fuel and air metering (injector circuit)",
	'3': "ignition system or misfire",
	'4': "auxiliary emission controls",
	'5': "vehicle speed, idle control and auxiliary inputs",
	'6': "computer and output circuits",
	'7': "transmission",
	'8': "transmission",
	'9': "transmission",
	'A': "hybrid propulsion",
	'B': "hybrid propulsion",
	'C': "hybrid propulsion",
}

var descriptions = map[string]string{
	"P0100": "Mass or volume air flow circuit malfunction",
	"P0101": "Mass or volume air flow circuit range/performance",
	"P0113": "Intake air temperature circuit high input",
	"P0117": "Engine coolant temperature circuit low input",
	"P0118": "Engine coolant temperature circuit high input",
	"P0128": "Coolant thermostat below regulating temperature",
	"P0171": "System too lean (bank 1)",
	"P0172": "System too rich (bank 1)",
	"P0174": "System too lean (bank 2)",
	"P0175": "System too rich (bank 2)",
	"P0201": "Injector circuit malfunction, cylinder 1",
	"P0202": "Injector circuit malfunction, cylinder 2",
	"P0217": "Engine overheat condition",
	"P0219": "Engine overspeed condition",
	"P0234": "Turbocharger overboost condition",
	"P0299": "Turbocharger underboost condition",
	"P0300": "Random/multiple cylinder misfire detected",
	"P0301": "Cylinder 1 misfire detected",
	"P0302": "Cylinder 2 misfire detected",
	"P0303": "Cylinder 3 misfire detected",
	"P0304": "Cylinder 4 misfire detected",
	"P0305": "Cylinder 5 misfire detected",
	"P0306": "Cylinder 6 misfire detected",
	"P0307": "Cylinder 7 misfire detected",
	"P0308": "Cylinder 8 misfire detected",
	"P0325": "Knock sensor 1 circuit malfunction",
	"P0335": "Crankshaft position sensor A circuit malfunction",
	"P0340": "Camshaft position sensor circuit malfunction",
	"P0401": "Exhaust gas recirculation flow insufficient",
	"P0420": "Catalyst system efficiency below threshold (bank 1)",
	"P0430": "Catalyst system efficiency below threshold (bank 2)",
	"P0440": "Evaporative emission control system malfunction",
	"P0442": "Evaporative emission control system leak detected (small leak)",
	"P0455": "Evaporative emission control system leak detected (large leak)",
	"P0500": "Vehicle speed sensor malfunction",
	"P0505": "Idle control system malfunction",
	"P0520": "Engine oil pressure sensor/switch circuit malfunction",
	"P0524": "Engine oil pressure too low",
	"P0562": "System voltage low",
	"P0563": "System voltage high",
	"P0700": "Transmission control system malfunction",
	"P0715": "Input/turbine speed sensor circuit malfunction",
	"P0730": "Incorrect gear ratio",
	"P0740": "Torque converter clutch circuit malfunction",
	"P2002": "Diesel particulate filter efficiency below threshold (bank 1)",
	"P20EE": "SCR NOx catalyst efficiency below threshold (bank 1)",
	"C0035": "Left front wheel speed sensor circuit",
	"C0040": "Right front wheel speed sensor circuit",
	"C0265": "ABS motor relay circuit",
	"B0001": "Driver frontal stage 1 deployment control",
	"B0100": "Electronic frontal sensor 1",
	"U0001": "High speed CAN communication bus",
	"U0100": "Lost communication with ECM/PCM A",
	"U0101": "Lost communication with TCM",
	"U0121": "Lost communication with anti-lock brake system control module",
	"U0155": "Lost communication with instrument panel cluster control module",
}
