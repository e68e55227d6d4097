package patterns

import "strings"

// Detect picks the framework row for text written in lang. Each row scores
// the weighted count of its indicator keywords. Primary rows compete first;
// secondary rows are consulted only when no primary row scored. A tie for
// the top score, or no score at all, yields the generic row.
func Detect(text, lang string) *Framework {
	lower := strings.ToLower(text)
	fw, scored := best(lower, lang, false)
	if !scored {
		fw, _ = best(lower, lang, true)
	}
	if fw == nil {
		return genericFramework
	}
	return fw
}

// best returns the single top-scoring row, nil on a tie, and whether any row
// scored at all.
func best(lower, lang string, secondary bool) (*Framework, bool) {
	var (
		top    *Framework
		topVal int
		tied   bool
	)
	for _, fw := range frameworks {
		if fw.secondary != secondary || !fw.appliesTo(lang) {
			continue
		}
		s := score(lower, fw)
		switch {
		case s == 0:
		case s > topVal:
			top, topVal, tied = fw, s, false
		case s == topVal:
			tied = true
		}
	}
	if top == nil || tied {
		return nil, top != nil
	}
	return top, true
}

func score(lower string, fw *Framework) int {
	total := 0
	for _, ind := range fw.indicators {
		total += ind.weight * strings.Count(lower, ind.keyword)
	}
	return total
}

// Lookup returns the row named name, or nil.
func Lookup(name string) *Framework {
	if name == genericFramework.Name {
		return genericFramework
	}
	for _, fw := range frameworks {
		if fw.Name == name {
			return fw
		}
	}
	return nil
}
