package employee

import (
	"fmt"
	"strconv"
	"strings"
)

const NumberPrefix = "EMP-"

func FormatEmployeeNumber(n int64) string {
	return fmt.Sprintf("%s%04d", NumberPrefix, n)
}

func ParseEmployeeNumber(number string) (int64, bool) {
	if !strings.HasPrefix(number, NumberPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(number, NumberPrefix), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextEmployeeNumber follows last; empty or unparseable input starts over at EMP-0001.
func NextEmployeeNumber(last string) string {
	n, ok := ParseEmployeeNumber(last)
	if !ok {
		return FormatEmployeeNumber(1)
	}
	return FormatEmployeeNumber(n + 1)
}
