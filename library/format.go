package homie

import (
	"fmt"
	"strconv"
	"strings"
)

// Payload formatting helpers.

func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// FormatFloat renders a float with exactly one decimal place.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func FormatInt(i int) string {
	return strconv.Itoa(i)
}

func ToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

// FormatMac strips any colons from mac and re-inserts one after every two
// hex characters.  Case is preserved.  The empty string formats to itself.
func FormatMac(mac string) (string, error) {
	raw := strings.ReplaceAll(mac, ":", "")
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("%w: %q has an odd number of digits", ErrInvalidMac, mac)
	}

	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if !isHex(raw[i]) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidMac, mac, raw[i])
		}
		if i > 0 && i%2 == 0 {
			sb.WriteByte(':')
		}
		sb.WriteByte(raw[i])
	}
	return sb.String(), nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// SplitTopic breaks a topic into its levels.
func SplitTopic(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, "/")
}

func joinIds(ids []string) string {
	return strings.Join(ids, ",")
}
