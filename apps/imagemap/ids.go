package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIDs parses map IDs given as "3", "5-8" or "1,2,4".
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			lo, hi, isRange := strings.Cut(part, "-")
			start, err := strconv.ParseInt(lo, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid map id %q", part)
			}
			end := start
			if isRange {
				if end, err = strconv.ParseInt(hi, 10, 64); err != nil || end < start {
					return nil, fmt.Errorf("invalid map id range %q", part)
				}
			}
			for id := start; id <= end; id++ {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// formatIDs renders sorted IDs compactly, e.g. "0-3, 7, 9-10".
func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	var b strings.Builder
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		if j == i {
			fmt.Fprintf(&b, "%d", ids[i])
		} else {
			fmt.Fprintf(&b, "%d-%d", ids[i], ids[j])
		}
		i = j + 1
	}
	return b.String()
}
