package watch

import "fmt"

// Classification labels one measurement.
type Classification uint8

const (
	Normal Classification = iota
	Slow
	Failed
)

// Classify labels a measurement. Failure wins over timing; a zero threshold
// makes every successful measurement Slow.
func Classify(elapsedMs, thresholdMs uint64, failed bool) Classification {
	switch {
	case failed:
		return Failed
	case elapsedMs >= thresholdMs:
		return Slow
	default:
		return Normal
	}
}

func (c Classification) String() string {
	switch c {
	case Normal:
		return "normal"
	case Slow:
		return "slow"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("classification(%d)", uint8(c))
	}
}

func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Classification) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*c = Normal
	case "slow":
		*c = Slow
	case "failed":
		*c = Failed
	default:
		return fmt.Errorf("unknown classification %q", b)
	}
	return nil
}
