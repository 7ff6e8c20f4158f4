package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Marker is one "add to cart" instruction embedded in a reply.
type Marker struct {
	Name  string
	Price float64
}

var markerRe = regexp.MustCompile(`ORDER:\s*(.+?)\s+-\s+₹\s*(\d+(?:\.\d+)?)`)

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// FormatOrderMarker renders the line the ordering page turns into an
// add-to-cart button: ORDER: <name> - ₹<price>
func FormatOrderMarker(name string, price float64) string {
	return fmt.Sprintf("ORDER: %s - ₹%s", strings.TrimSpace(name), formatPrice(price))
}

// ParseOrderMarkers extracts every marker from text in order of appearance.
func ParseOrderMarkers(text string) []Marker {
	var out []Marker
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		price, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, Marker{Name: strings.TrimSpace(m[1]), Price: price})
	}
	return out
}
