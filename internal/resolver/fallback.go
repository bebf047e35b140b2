package resolver

import "strings"

// parseFallback handles files whose delimiter is inconsistent row-to-row.
//
// It splits the header with every candidate delimiter and keeps the one
// yielding the most fields as the expected column count. Each data line is
// then parsed by first trying that delimiter; on a field-count mismatch the
// other candidates are retried for that single line; if none match, the line
// is kept as one unsplit field rather than discarded.
//
// Splitting is plain string splitting: a delimiter inside a quoted field is
// mis-split here, the same way the whole-file trials would have rejected it.
func parseFallback(text string, delims []rune) (header []string, rows [][]*string, ok bool) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil, nil, false
	}

	headerLine := lines[0]
	best := rune(0)
	maxCols := 0
	for _, d := range delims {
		if n := len(strings.Split(headerLine, string(d))); n > maxCols {
			maxCols = n
			best = d
		}
	}
	if best == 0 || maxCols <= 1 {
		return nil, nil, false
	}

	header = strings.Split(headerLine, string(best))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	rows = make([][]*string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		parts := strings.Split(line, string(best))
		if len(parts) != maxCols {
			found := false
			for _, alt := range delims {
				if alt == best {
					continue
				}
				if altParts := strings.Split(line, string(alt)); len(altParts) == maxCols {
					parts = altParts
					found = true
					break
				}
			}
			if !found {
				// No delimiter fits; keep the line whole instead of
				// discarding it.
				parts = []string{line}
			}
		}

		row := make([]*string, len(parts))
		for i := range parts {
			v := strings.TrimSpace(parts[i])
			if v == "" {
				continue
			}
			row[i] = &v
		}
		rows = append(rows, row)
	}

	return header, rows, true
}

// splitLines splits on '\n', trims trailing '\r', and ignores leading and
// trailing blank content.
func splitLines(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}
