package tool

import (
	"fmt"
	"time"
)

// SamplingInterval возвращает период между замерами для частоты hz.
// Период считается целочисленно в миллисекундах: 1000/hz
func SamplingInterval(hz uint) time.Duration {
	if hz == 0 {
		return 0
	}
	return time.Duration(1000/int(hz)) * time.Millisecond
}

// MilliDegString представление милли-градусов в виде градусов ("40.000")
func MilliDegString(mc int) string {
	return fmt.Sprintf("%.3f", float64(mc)/1000)
}
