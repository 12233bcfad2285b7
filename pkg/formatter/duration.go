package formatter

import (
	"fmt"
	"math"

	"github.com/neurodesk/worklog/pkg/value"
)

func duration(val value.Value, _ []string) (value.Value, error) {
	minutes, ok := value.Number(val)
	if !ok {
		return value.String(""), nil
	}
	return value.String(FormatMinutes(minutes)), nil
}

// FormatMinutes renders a minute count as "<h>h <m>m". Negative,
// non-finite and out of range counts render as the empty string.
func FormatMinutes(minutes float64) string {
	if math.IsNaN(minutes) || minutes < 0 || minutes >= math.MaxInt64 {
		return ""
	}
	total := int64(math.Round(minutes))
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}
