package rubric

import (
	"regexp"
	"strconv"
	"strings"
)

// dash accepts the hyphen, en dash and em dash authors use interchangeably.
const dash = `[-–—]`

// letter is a part or option label: one Hebrew or Latin letter, optionally with a geresh.
const letter = `([א-ת]|[A-Za-z])['׳]?`

const (
	generalMarker     = "כללי"
	alternativePhrase = "פתרון נוסף"
	reductionVerb     = "להוריד"
	partWord          = "סעיף"
)

// compoundPhrases mark headers that cover two questions at once.
var compoundPhrases = []string{
	"שאלה כפולה",
	"מונחה עצמים",
}

var (
	compoundHeaderPattern = regexp.MustCompile(`^שאלות\s+(\d+)\s*/\s*(\d+)`)
	integerPattern        = regexp.MustCompile(`\d+`)
	questionHeaderPattern = regexp.MustCompile(`^שאלה\s+(\d+)(?:\s*[-–—:.]\s*|\s+|$)(.*)$`)
	partHeaderPattern     = regexp.MustCompile(`^סעיף\s+` + letter + `\s*` + dash + `\s*(\d+)\s*%`)
	optionPattern         = regexp.MustCompile(`^אפשרות\s+` + letter + `(?:[\s:.)]|` + dash + `|$)`)
	reductionHeader       = regexp.MustCompile(`^הורדות(?:\s+(?:לשתי האפשרויות|לשני הפתרונות))?\s*:$`)
	reductionPattern      = regexp.MustCompile(`^(.*?)\s*` + dash + `\s*להוריד\s+(\d+)\s*%`)
	noReductionPattern    = regexp.MustCompile(`^(.*?)\s*` + dash + `\s*לא\s+להוריד\s+נקודות`)
	stepPattern           = regexp.MustCompile(`^(.+?)\s*` + dash + `\s*(\d+)\s*%`)
	percentPattern        = regexp.MustCompile(`(\d+)\s*%`)
)

type rule struct {
	name  string
	match func(line string, ctx Context) (Token, bool)
}

// rules is evaluated top to bottom and the first match wins. Question and part headers
// sit above the scored step rule so a header carrying a percentage is never read as a step.
var rules = []rule{
	{name: "general_marker", match: matchGeneralMarker},
	{name: "compound_header", match: matchCompoundHeader},
	{name: "question_header", match: matchQuestionHeader},
	{name: "part_header", match: matchPartHeader},
	{name: "alternative", match: matchAlternative},
	{name: "reduction_header", match: matchReductionHeader},
	{name: "reduction", match: matchReduction},
	{name: "step", match: matchStep},
	{name: "general_rule", match: matchGeneralRule},
}

// Classify returns the token for a single normalized, non-blank rubric line.
func Classify(line string, ctx Context) Token {
	for _, r := range rules {
		if tok, ok := r.match(line, ctx); ok {
			tok.Line = line
			return tok
		}
	}
	return Token{Kind: TokenUnmatched, Text: line, Line: line}
}

// RuleNames lists the classifier rules in evaluation order.
func RuleNames() []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.name)
	}
	return names
}

func matchGeneralMarker(line string, _ Context) (Token, bool) {
	if !strings.HasPrefix(line, generalMarker) {
		return Token{}, false
	}
	return Token{Kind: TokenEnterGeneral, Text: line}, true
}

func matchCompoundHeader(line string, _ Context) (Token, bool) {
	if m := compoundHeaderPattern.FindStringSubmatch(line); m != nil {
		return Token{Kind: TokenQuestionHeader, Number: m[1] + "/" + m[2], Text: line}, true
	}
	for _, phrase := range compoundPhrases {
		if strings.Contains(line, phrase) {
			numbers := integerPattern.FindAllString(line, 2)
			return Token{Kind: TokenQuestionHeader, Number: strings.Join(numbers, "/"), Text: line}, true
		}
	}
	return Token{}, false
}

func matchQuestionHeader(line string, _ Context) (Token, bool) {
	m := questionHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return Token{}, false
	}
	title := strings.TrimSpace(m[2])
	if title == "" {
		title = line
	}
	return Token{Kind: TokenQuestionHeader, Number: m[1], Text: title}, true
}

func matchPartHeader(line string, ctx Context) (Token, bool) {
	if !ctx.InQuestion && !ctx.InPart {
		return Token{}, false
	}
	m := partHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return Token{}, false
	}
	return Token{Kind: TokenPartHeader, Number: m[1], Text: partWord + " " + m[1], Value: atoi(m[2])}, true
}

func matchAlternative(line string, _ Context) (Token, bool) {
	if strings.Contains(line, alternativePhrase) || optionPattern.MatchString(line) {
		return Token{Kind: TokenAlternative, Text: line}, true
	}
	return Token{}, false
}

func matchReductionHeader(line string, _ Context) (Token, bool) {
	if reductionHeader.MatchString(line) {
		return Token{Kind: TokenSkip, Text: line}, true
	}
	return Token{}, false
}

func matchReduction(line string, _ Context) (Token, bool) {
	if !strings.Contains(line, reductionVerb) {
		return Token{}, false
	}
	if m := noReductionPattern.FindStringSubmatch(line); m != nil {
		return Token{Kind: TokenReduction, Text: describe(m[1], line), Value: 0}, true
	}
	if m := reductionPattern.FindStringSubmatch(line); m != nil {
		return Token{Kind: TokenReduction, Text: describe(m[1], line), Value: atoi(m[2])}, true
	}
	return Token{}, false
}

func matchStep(line string, _ Context) (Token, bool) {
	if questionHeaderPattern.MatchString(line) || partHeaderPattern.MatchString(line) {
		return Token{}, false
	}
	m := stepPattern.FindStringSubmatch(line)
	if m == nil {
		return Token{}, false
	}
	return Token{Kind: TokenStep, Text: describe(m[1], line), Value: atoi(m[2])}, true
}

func matchGeneralRule(line string, ctx Context) (Token, bool) {
	if !ctx.InGeneral {
		return Token{}, false
	}
	return Token{Kind: TokenGeneralRule, Text: line, Value: TrailingPercent(line)}, true
}

// TrailingPercent returns the last percentage that appears in line, or zero.
func TrailingPercent(line string) int {
	matches := percentPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0
	}
	return atoi(matches[len(matches)-1][1])
}

func describe(captured, line string) string {
	text := strings.TrimSpace(captured)
	if text == "" {
		return line
	}
	return text
}

func atoi(digits string) int {
	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return value
}
