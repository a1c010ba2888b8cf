package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ClockTime is a local wall-clock time of day with minute precision,
// parsed from the "HH:MM" form used by the scheduler window settings.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses an "HH:MM" string.
func ParseClockTime(value string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: expected HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}

	if hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: hour out of range", value)
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: minute out of range", value)
	}

	return ClockTime{Hour: hour, Minute: minute}, nil
}

// MinuteOfDay returns the number of minutes elapsed since midnight.
func (c ClockTime) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c.MinuteOfDay() < other.MinuteOfDay()
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// StringToClockTimeHookFunc decodes "HH:MM" strings into ClockTime values.
func StringToClockTimeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(ClockTime{}) {
			return data, nil
		}
		return ParseClockTime(data.(string))
	}
}
