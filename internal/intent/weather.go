package intent

import (
	"strconv"
	"strings"
)

// Weather holds the facts returned by a weather lookup.
type Weather struct {
	Location    string
	Temperature float64
	Condition   string
	Humidity    *float64
	WindSpeed   *float64
}

// Facts renders w as the single line the assistant receives.
func (w Weather) Facts() string {
	condition := w.Condition
	if strings.TrimSpace(condition) == "" {
		condition = "Unknown"
	}

	var b strings.Builder
	b.WriteString("Location: ")
	b.WriteString(w.Location)
	b.WriteString(", Temperature: ")
	b.WriteString(formatNumber(&w.Temperature))
	b.WriteString("°C, Condition: ")
	b.WriteString(condition)
	b.WriteString(", Wind Speed: ")
	b.WriteString(formatNumber(w.WindSpeed))
	b.WriteString(" km/h, Humidity: ")
	b.WriteString(formatNumber(w.Humidity))
	b.WriteString("%")
	return b.String()
}

// Augment appends weather facts to an outgoing message. The stored message
// keeps the original text.
func Augment(text string, w Weather) string {
	return text + "\n\n[Weather Information: " + w.Facts() + "]"
}

func formatNumber(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
