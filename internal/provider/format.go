package provider

import "fmt"

func defaultFormatImpl(v float64) string {
	return fmt.Sprintf("%g", v)
}
