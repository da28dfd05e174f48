package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DrJosh9000/hudl/telemetry"
)

// FormatVoltage formats tenths of a volt, e.g. 725 as "72.5 v".
func FormatVoltage(tenths uint16) string {
	return fmt.Sprintf("%d.%d v", tenths/10, tenths%10)
}

// FormatTemp formats hundredths of a degree, e.g. 2650 as "26.50 C".
func FormatTemp(hundredths uint16) string {
	return fmt.Sprintf("%d.%02d C", hundredths/100, hundredths%100)
}

// FormatStatus names a motor controller status word. Unknown words are shown
// in hex and reported as not known.
func FormatStatus(word uint16) (string, bool) {
	switch word {
	case telemetry.StatusStop:
		return "STOP", true
	case telemetry.StatusGo:
		return "GO", true
	}
	return fmt.Sprintf("0x%X", word), false
}

// FormatInt formats a signed value in decimal.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Saturate returns a decimal string unchanged if it fits in cols runes, or
// else the widest run of nines that does, signed like the value: "+9999999"
// or "-9999999" for eight columns.
func Saturate(text string, cols int) string {
	if len([]rune(text)) <= cols || cols < 2 {
		return text
	}
	sign := "+"
	if strings.HasPrefix(text, "-") {
		sign = "-"
	}
	return sign + strings.Repeat("9", cols-1)
}
