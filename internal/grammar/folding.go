package grammar

import (
	"sort"

	"github.com/akhenakh/skriptls/internal/document"
	"github.com/akhenakh/skriptls/protocol"
)

const tabWidth = 4

// indentOf returns the indentation width of line, or -1 for a blank line.
func indentOf(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth - width%tabWidth
		default:
			return width
		}
	}
	return -1
}

type openBlock struct {
	indent int
	line   int
}

// FoldingRanges computes off-side folding ranges from indentation plus
// explicit #region/#endregion blocks.
func FoldingRanges(text string) []protocol.FoldingRange {
	lines := document.Lines(text)
	var (
		out          []protocol.FoldingRange
		stack        []openBlock
		regions      []int
		lastNonBlank = -1
	)
	closeTo := func(indent int) {
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if lastNonBlank > top.line {
				out = append(out, protocol.FoldingRange{StartLine: uint(top.line), EndLine: uint(lastNonBlank)})
			}
		}
	}

	for i, line := range lines {
		switch {
		case matches(regionStartRe, line):
			regions = append(regions, i)
		case matches(regionEndRe, line) && len(regions) > 0:
			start := regions[len(regions)-1]
			regions = regions[:len(regions)-1]
			if i > start {
				out = append(out, protocol.FoldingRange{StartLine: uint(start), EndLine: uint(i), Kind: protocol.FoldingRegion})
			}
		}

		indent := indentOf(line)
		if indent < 0 {
			continue
		}
		closeTo(indent)
		stack = append(stack, openBlock{indent: indent, line: i})
		lastNonBlank = i
	}
	closeTo(0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out
}
