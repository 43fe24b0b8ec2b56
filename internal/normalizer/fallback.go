package normalizer

import (
	"regexp"
	"strings"

	"github.com/remboglow/facefit/internal/domain"
)

// Fallback extraction for responses where the model ignored the JSON
// instruction and answered in prose. Each pattern captures the text after a
// labelled keyword up to the end of the sentence or line.
var (
	skinTonePattern  = regexp.MustCompile(`(?i)skin\s*tone\s*(?:is|:)\s*([^.\n,;]+)`)
	undertonePattern = regexp.MustCompile(`(?i)undertone\s*(?:is|:)\s*([^.\n,;]+)`)
	faceShapePattern = regexp.MustCompile(`(?i)(?:face|facial)\s*shape\s*(?:is|:)\s*([^.\n,;]+)`)
	skinTypePattern  = regexp.MustCompile(`(?i)skin\s*type\s*(?:is|:)\s*([^.\n,;]+)`)
	concernsPattern  = regexp.MustCompile(`(?i)concerns?\s*(?:are|include|:)\s*([^.\n]+)`)
)

// extractProfileFromProse scavenges a skin profile out of unstructured text.
// Fields the text does not mention come back as NotSpecified and are listed
// in missing. recovered reports how many fields were actually found; a zero
// count means the text held nothing usable.
func extractProfileFromProse(text string) (profile domain.SkinProfile, missing []string, recovered int) {
	profile = domain.SkinProfile{
		SkinTone:    domain.NotSpecified,
		Undertone:   domain.NotSpecified,
		FacialShape: domain.NotSpecified,
		SkinType:    domain.NotSpecified,
	}

	if v := firstMatch(skinTonePattern, text); v != "" {
		profile.SkinTone = v
		recovered++
	} else {
		missing = append(missing, "skinTone")
	}

	if v := firstMatch(undertonePattern, text); v != "" {
		profile.Undertone = v
		recovered++
	} else {
		missing = append(missing, "undertone")
	}

	if v := firstMatch(faceShapePattern, text); v != "" {
		profile.FacialShape = v
		recovered++
	} else {
		missing = append(missing, "facialShape")
	}

	if v := firstMatch(skinTypePattern, text); v != "" {
		profile.SkinType = v
		recovered++
	} else {
		missing = append(missing, "skinType")
	}

	if v := firstMatch(concernsPattern, text); v != "" {
		profile.Concerns = splitConcerns(v)
		recovered++
	} else {
		missing = append(missing, "concerns")
	}

	return profile, missing, recovered
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func splitConcerns(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "and "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
