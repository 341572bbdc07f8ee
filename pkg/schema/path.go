package schema

import (
	"strconv"
	"strings"
)

// JoinPath appends a relative field path to parent using dotted keys and
// bracketed indexes, e.g. JoinPath("items[0]", "label") == "items[0].label".
func JoinPath(parent, rel string) string {
	switch {
	case parent == "":
		return rel
	case rel == "":
		return parent
	case strings.HasPrefix(rel, "["):
		return parent + rel
	}
	return parent + "." + rel
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}
