package riak

import (
	"errors"
	"strings"
)

// ErrEmptyOutput сигнализирует, что команда не вернула ни одной полезной строки.
var ErrEmptyOutput = errors.New("command produced no usable output")

// splitLines разбивает захваченный вывод на строки без дополнительной фильтрации.
func splitLines(raw string) []string {
	return strings.Split(raw, "\n")
}

// normalize отбрасывает crash-баннеры riak (префикс "!!!!") и ведущую
// строку "Attempting...". Порядок остальных строк сохраняется.
func normalize(raw string) []string {
	lines := splitLines(raw)
	msgs := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "!!!!") {
			continue
		}
		msgs = append(msgs, line)
	}
	if len(msgs) > 0 && strings.HasPrefix(msgs[0], "Attempting") {
		msgs = msgs[1:]
	}
	return msgs
}

// firstOf возвращает первую строку списка либо ErrEmptyOutput.
func firstOf(lines []string) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyOutput
	}
	return lines[0], nil
}
