package triage

import (
	"regexp"
	"strconv"
)

// codePattern matches "word characters, optional colon/dash/space separator,
// digits" and captures the digit run.
var codePattern = regexp.MustCompile(`[A-Za-z]+\s*[:\- ]\s*(\d+)`)

// ExtractCode returns the first error code found in a cleaned body. Only the
// first match is used; the extractor is not exhaustive.
func ExtractCode(body string) (int, bool) {
	m := codePattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}
