package cli

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ansiEscape matches the SGR escape sequences emitted by fatih/color.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// escapeAwareRuneCount counts the runes of s ignoring color escapes.
func escapeAwareRuneCount(s string) int {
	return utf8.RuneCountInString(ansiEscape.ReplaceAllString(s, ""))
}

// rightPad pads str with spaces up to length visible runes.
func rightPad(str string, length int) string {
	count := length - escapeAwareRuneCount(str)
	if count < 0 {
		count = 0
	}
	return str + strings.Repeat(" ", count)
}
