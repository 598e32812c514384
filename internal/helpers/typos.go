package helpers

import "unicode/utf8"

// TypoDetector suggests a valid name for a name that is one character away
// from it (one deleted or one misplaced character). It is used to improve
// "no matching export" diagnostics.
type TypoDetector struct {
	oneCharTypos map[string]string
}

func MakeTypoDetector(valid []string) TypoDetector {
	detector := TypoDetector{oneCharTypos: make(map[string]string)}

	// Short names produce too many false positives
	for _, correct := range valid {
		if len(correct) > 3 {
			for i, ch := range correct {
				detector.oneCharTypos[correct[:i]+correct[i+utf8.RuneLen(ch):]] = correct
			}
		}
	}

	return detector
}

func (detector TypoDetector) MaybeCorrectTypo(typo string) (string, bool) {
	if corrected, ok := detector.oneCharTypos[typo]; ok {
		return corrected, true
	}

	for i, ch := range typo {
		if corrected, ok := detector.oneCharTypos[typo[:i]+typo[i+utf8.RuneLen(ch):]]; ok && corrected != typo {
			return corrected, true
		}
	}

	return "", false
}
