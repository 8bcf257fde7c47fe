package checker

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// traceHeaderRe matches a sniffwave trace header line, e.g.
//
//	WLF.BHZ.GE.-- (0x32 0x30) 0 i4   40    20.0 2008/12/24 06:07:24.63 ...
var traceHeaderRe = regexp.MustCompile(`^\s*[\w-]+\.[\w-]+\.[\w-]+(\.[\w-]+)?\s+\(0x[0-9a-fA-F]+\s+0x[0-9a-fA-F]+\)`)

// SniffSummary is what a sampling window showed.
type SniffSummary struct {
	Records    int
	Errors     []string
	LastRecord string
}

// ParseSniff counts trace records and collects error lines in sniffwave output.
func ParseSniff(output []byte) SniffSummary {
	var summary SniffSummary
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.Contains(line, "ERROR"):
			summary.Errors = append(summary.Errors, strings.TrimSpace(line))
		case traceHeaderRe.MatchString(line):
			summary.Records++
			summary.LastRecord = strings.TrimSpace(line)
		}
	}
	return summary
}
