package attr

import "sort"

// Resolve turns staged capture events into the attribution entries for one
// commit. Each event's range is intersected with the commit's changed lines
// for that file, overlapping claims are resolved last-writer-wins by event
// timestamp, and surviving lines are coalesced into minimal contiguous
// entries.
//
// changed maps repo-relative paths to the 1-indexed lines the commit added
// or modified. When keepAll is true (no usable diff, e.g. a root commit)
// captured ranges are kept whole instead of intersected.
func Resolve(events []CaptureEvent, changed map[string][]int, keepAll bool) []LineAttribution {
	if len(events) == 0 {
		return nil
	}

	ordered := make([]CaptureEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	changedSets := make(map[string]map[int]bool, len(changed))
	for path, lines := range changed {
		set := make(map[int]bool, len(lines))
		for _, ln := range lines {
			set[ln] = true
		}
		changedSets[path] = set
	}

	// Later events overwrite earlier claims line by line.
	owners := make(map[string]map[int]LineAttribution)
	for _, e := range ordered {
		if e.Lines() == 0 {
			continue
		}
		set, fileChanged := changedSets[e.Path]
		if !fileChanged && !keepAll {
			continue
		}
		fileOwners := owners[e.Path]
		if fileOwners == nil {
			fileOwners = make(map[int]LineAttribution)
			owners[e.Path] = fileOwners
		}
		claim := LineAttribution{
			Path:         e.Path,
			Kind:         KindAI,
			Tool:         e.Tool,
			SessionID:    e.SessionID,
			PromptDigest: e.PromptDigest,
		}
		for line := e.StartLine; line < e.EndLine; line++ {
			if keepAll || set[line] {
				fileOwners[line] = claim
			}
		}
	}

	var entries []LineAttribution
	for path, fileOwners := range owners {
		entries = append(entries, CoalesceOwners(path, fileOwners)...)
	}
	sortEntries(entries)
	return entries
}

// CoalesceOwners collapses a per-line ownership map for one file into the
// minimal set of contiguous entries. Adjacent lines merge only when their
// owners carry the same tool, session, and prompt digest.
func CoalesceOwners(path string, owners map[int]LineAttribution) []LineAttribution {
	if len(owners) == 0 {
		return nil
	}

	lines := make([]int, 0, len(owners))
	for line := range owners {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	var out []LineAttribution
	current := owners[lines[0]]
	current.Path = path
	current.StartLine = lines[0]
	current.EndLine = lines[0] + 1

	for _, line := range lines[1:] {
		owner := owners[line]
		owner.Path = path
		if line == current.EndLine && current.sameIdentity(owner) {
			current.EndLine = line + 1
			continue
		}
		out = append(out, current)
		current = owner
		current.StartLine = line
		current.EndLine = line + 1
	}
	out = append(out, current)
	return out
}
