package job

import (
	"fmt"
	"strings"
)

// SourceLanguage is the language generated recipes are written in.
const SourceLanguage = "fr"

// DefaultLanguages is used when no target language is configured.
var DefaultLanguages = []string{"en"}

var languageNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"fi": "Finnish",
	"fr": "French",
	"he": "Hebrew",
	"hi": "Hindi",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"sv": "Swedish",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// ParseLanguages normalizes language codes given as separate values or as
// lists separated by commas, semicolons or whitespace. Codes are lower-cased
// and de-duplicated; first occurrence order is kept.
func ParseLanguages(values ...string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, value := range values {
		fields := strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
		for _, f := range fields {
			code := strings.ToLower(strings.TrimSpace(f))
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

// DescribeLanguage names a language for a translation prompt.
func DescribeLanguage(code string) string {
	if name, ok := languageNames[code]; ok {
		return fmt.Sprintf("natural %s (%s)", name, code)
	}
	return fmt.Sprintf("the language indicated by the ISO 639-1 code '%s'", code)
}
