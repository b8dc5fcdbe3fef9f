package generator

import "strings"

const (
	hangulBase  = 0xAC00
	hangulLast  = 0xD7A3
	jungCount   = 21
	jongCount   = 28
	vowelA      = 0  // ㅏ
	vowelAe     = 1  // ㅐ
	vowelEo     = 4  // ㅓ
	vowelE      = 5  // ㅔ
	vowelYeo    = 6  // ㅕ
	vowelO      = 8  // ㅗ
	vowelWa     = 9  // ㅘ
	vowelU      = 13 // ㅜ
	vowelWo     = 14 // ㅝ
	vowelEu     = 18 // ㅡ
	vowelI      = 20 // ㅣ
	noFinal     = 0
	syllableLen = jungCount * jongCount
)

type syllable struct {
	initial, medial, final int
}

func decompose(r rune) (syllable, bool) {
	if r < hangulBase || r > hangulLast {
		return syllable{}, false
	}
	code := int(r - hangulBase)
	return syllable{
		initial: code / syllableLen,
		medial:  (code % syllableLen) / jongCount,
		final:   code % jongCount,
	}, true
}

func (s syllable) rune() rune {
	return rune(hangulBase + s.initial*syllableLen + s.medial*jongCount + s.final)
}

// PolitePresent conjugates a dictionary form (ending in 다) into the polite
// present tense: 하다 → 해요, bright stems take 아요, the rest 어요, with the
// usual vowel contractions for open syllables. Irregular stems are not
// handled.
func PolitePresent(base string) string {
	base = strings.TrimSpace(base)
	stem := strings.TrimSuffix(base, "다")
	if stem == "" {
		return base
	}
	if strings.HasSuffix(stem, "하") {
		return strings.TrimSuffix(stem, "하") + "해요"
	}

	runes := []rune(stem)
	last, ok := decompose(runes[len(runes)-1])
	if !ok {
		return stem + "어요"
	}
	bright := last.medial == vowelA || last.medial == vowelO
	if last.final != noFinal {
		if bright {
			return stem + "아요"
		}
		return stem + "어요"
	}

	switch last.medial {
	case vowelA, vowelEo, vowelYeo, vowelAe, vowelE:
		return stem + "요"
	case vowelO:
		last.medial = vowelWa
	case vowelU:
		last.medial = vowelWo
	case vowelI:
		last.medial = vowelYeo
	case vowelEu:
		last.medial = vowelEo
	default:
		return stem + "어요"
	}
	runes[len(runes)-1] = last.rune()
	return string(runes) + "요"
}
