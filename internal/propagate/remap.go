package propagate

import (
	"aiblame/internal/gitrepo"
)

// MapLine maps a 1-indexed old-side line number through a file's change
// hunks to its new-side line number. Lines consumed by a hunk's old range
// do not map; lines between hunks shift by the cumulative size difference
// of the hunks before them. Hunks must be in ascending old order, which is
// how git emits them.
func MapLine(hunks []gitrepo.HunkDelta, line int) (int, bool) {
	offset := 0
	for _, h := range hunks {
		if h.OldLines == 0 {
			// Pure insertion, positioned after old line OldStart.
			if line <= h.OldStart {
				return line + offset, true
			}
			offset += h.NewLines
			continue
		}
		if line < h.OldStart {
			return line + offset, true
		}
		if line < h.OldStart+h.OldLines {
			return 0, false
		}
		offset += h.NewLines - h.OldLines
	}
	return line + offset, true
}
