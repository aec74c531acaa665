package commands

import (
	"strconv"
	"strings"
	"time"
)

var units = []struct {
	name string
	size time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// Humanize форматирует длительность не более чем тремя единицами, начиная со старшей ненулевой:
// "1 day 2 hours 3 minutes".
func Humanize(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}
	var parts []string
	first := -1
	for i, u := range units {
		n := d / u.size
		d -= n * u.size
		if n == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		if i-first >= 3 {
			break
		}
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, strconv.FormatInt(int64(n), 10)+" "+name)
	}
	return strings.Join(parts, " ")
}
