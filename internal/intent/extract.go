// Package intent detects weather questions and pulls out the location they ask about.
package intent

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// weatherGate must match before any locale-specific parse is attempted.
	weatherGate = regexp.MustCompile(`(?i)(weather|temperature|temp|forecast|climate|rain|sunny|cloudy|degree|degrees|wind|windy|snow|snowy|humidity|hot|cold|天気|気温|温度|予報|雨|晴れ|曇り|風|風速|湿度|暑い|寒い|雪)`)

	// "in Paris", "for New York"
	englishLocation = regexp.MustCompile(`(?i)\b(?:in|at|for)[\s\p{Zs}]+([\p{L}.'-]+(?:[\s\p{Zs}]+[\p{L}.'-]+)?)`)

	// "東京の天気"
	locationBeforeKeyword = regexp.MustCompile(`([\p{Hiragana}\p{Katakana}\p{Han}ーA-Za-z]+?)[\s\p{Zs}]*(?:の|で|は)?[\s\p{Zs}]*(?:天気|気温|予報|雨|晴れ|曇り)`)

	// "天気は大阪"
	keywordBeforeLocation = regexp.MustCompile(`(?:天気|気温|予報|雨|晴れ|曇り)[\s\p{Zs}]*(?:は|って)?[\s\p{Zs}]*([\p{Hiragana}\p{Katakana}\p{Han}ーA-Za-z]+)`)
)

const (
	englishTrailing  = "？?。．.,!;"
	japaneseTrailing = "？?。．.,!;」』]"
)

// WeatherLocation returns the location a weather question refers to, if any.
func WeatherLocation(text string) (string, bool) {
	if !weatherGate.MatchString(text) {
		return "", false
	}

	if loc, ok := firstGroup(englishLocation, text, englishTrailing); ok {
		return loc, true
	}
	if loc, ok := firstGroup(locationBeforeKeyword, text, japaneseTrailing); ok {
		return loc, true
	}
	if loc, ok := firstGroup(keywordBeforeLocation, text, japaneseTrailing); ok {
		return loc, true
	}
	return "", false
}

func firstGroup(re *regexp.Regexp, text, trailing string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	loc := strings.TrimFunc(strings.TrimRight(m[1], trailing), unicode.IsSpace)
	if loc == "" {
		return "", false
	}
	return loc, true
}
