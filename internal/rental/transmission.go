package rental

import "strings"

const (
	TransmissionManual    = "MT"
	TransmissionAutomatic = "AT"
	TransmissionCVT       = "CVT"
)

// Transmissions is the fixed catalogue the vehicle filters offer.
var Transmissions = []Transmission{
	{Code: TransmissionManual, Name: "Manual"},
	{Code: TransmissionAutomatic, Name: "Automatica"},
	{Code: TransmissionCVT, Name: "CVT"},
}

// TransmissionCode resolves the filter code from the backend's free text and,
// when the text is empty, from the numeric id (1=MT, 2=AT, 3=CVT).
func TransmissionCode(text string, id int) string {
	code := strings.ToUpper(strings.TrimSpace(text))
	if code == "" {
		switch id {
		case 1:
			code = TransmissionManual
		case 2:
			code = TransmissionAutomatic
		case 3:
			code = TransmissionCVT
		}
	}

	lower := strings.ToLower(code)
	switch {
	case strings.Contains(lower, "man"):
		return TransmissionManual
	case strings.Contains(lower, "aut"):
		return TransmissionAutomatic
	case strings.Contains(lower, "cvt"):
		return TransmissionCVT
	}
	return code
}
