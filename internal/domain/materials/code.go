package materials

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

func kindLetter(c Category) string {
	switch c {
	case CategoryLeftover:
		return "L"
	case CategoryWIP:
		return "W"
	default:
		return "P"
	}
}

// CodePrefix: первые две буквы компании в верхнем регистре + буква вида +
// две цифры года + дефис. "Sun Paper", 2025 -> "SUP25-".
func CodePrefix(company string, c Category, t time.Time) string {
	r := []rune(strings.TrimSpace(company))
	if len(r) > 2 {
		r = r[:2]
	}
	return fmt.Sprintf("%s%s%02d-", strings.ToUpper(string(r)), kindLetter(c), t.Year()%100)
}

// SequenceOf извлекает номер из кода с данным префиксом.
// Нечисловой хвост — ok=false.
func SequenceOf(prefix, code string) (int, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	tail := code[len(prefix):]
	if tail == "" {
		return 0, false
	}
	for _, ch := range tail {
		if !unicode.IsDigit(ch) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSequence — максимальный номер среди кодов с префиксом (0, если нет).
func MaxSequence(prefix string, codes []string) int {
	max := 0
	for _, c := range codes {
		if n, ok := SequenceOf(prefix, c); ok && n > max {
			max = n
		}
	}
	return max
}

func FormatCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// NextCode — следующий код после максимального существующего.
func NextCode(prefix string, existing []string) string {
	return FormatCode(prefix, MaxSequence(prefix, existing)+1)
}

// ProductCode: тип материала без пробелов в верхнем регистре + формат.
func ProductCode(materialType, paperSize string) string {
	mt := strings.ToUpper(strings.Join(strings.Fields(materialType), ""))
	size := strings.TrimSpace(paperSize)
	switch {
	case mt == "" && size == "":
		return ""
	case size == "":
		return mt
	case mt == "":
		return size
	}
	return mt + "-" + size
}
