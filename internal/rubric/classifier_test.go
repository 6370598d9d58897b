package rubric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	generalCtx  = Context{InGeneral: true}
	questionCtx = Context{InQuestion: true}
	partCtx     = Context{InQuestion: true, InPart: true}
)

func TestClassifyRules(t *testing.T) {
	cases := []struct {
		name   string
		line   string
		ctx    Context
		kind   Kind
		number string
		text   string
		value  int
	}{
		{name: "general_marker", line: "כללי", ctx: questionCtx, kind: TokenEnterGeneral, text: "כללי"},
		{name: "general_marker_with_suffix", line: "כללי: הנחיות לבודק", ctx: partCtx, kind: TokenEnterGeneral, text: "כללי: הנחיות לבודק"},
		{name: "compound_numbers", line: "שאלות 11 / 13 – תכנות", ctx: generalCtx, kind: TokenQuestionHeader, number: "11/13", text: "שאלות 11 / 13 – תכנות"},
		{name: "compound_phrase", line: "שאלה כפולה 4 ו-5", ctx: questionCtx, kind: TokenQuestionHeader, number: "4/5", text: "שאלה כפולה 4 ו-5"},
		{name: "object_oriented_single_number", line: "שאלה 11 – תכנות מונחה עצמים", ctx: questionCtx, kind: TokenQuestionHeader, number: "11", text: "שאלה 11 – תכנות מונחה עצמים"},
		{name: "object_oriented_phrase_first", line: "מונחה עצמים – שאלות 11 ו-13", ctx: questionCtx, kind: TokenQuestionHeader, number: "11/13", text: "מונחה עצמים – שאלות 11 ו-13"},
		{name: "object_oriented_without_numbers", line: "תכנות מונחה עצמים", ctx: generalCtx, kind: TokenQuestionHeader, text: "תכנות מונחה עצמים"},
		{name: "question_with_title", line: "שאלה 1 – נושא כלשהו", ctx: generalCtx, kind: TokenQuestionHeader, number: "1", text: "נושא כלשהו"},
		{name: "question_without_title", line: "שאלה 7", ctx: partCtx, kind: TokenQuestionHeader, number: "7", text: "שאלה 7"},
		{name: "question_with_percent_title", line: "שאלה 2 – 30%", ctx: questionCtx, kind: TokenQuestionHeader, number: "2", text: "30%"},
		{name: "part_header", line: "סעיף א – 20%", ctx: questionCtx, kind: TokenPartHeader, number: "א", text: "סעיף א", value: 20},
		{name: "part_header_inside_part", line: "סעיף ב' - 15 %", ctx: partCtx, kind: TokenPartHeader, number: "ב", text: "סעיף ב", value: 15},
		{name: "alternative_phrase", line: "פתרון נוסף: שימוש ברקורסיה", ctx: partCtx, kind: TokenAlternative, text: "פתרון נוסף: שימוש ברקורסיה"},
		{name: "alternative_option", line: "אפשרות ב: לולאה", ctx: questionCtx, kind: TokenAlternative, text: "אפשרות ב: לולאה"},
		{name: "reduction_header", line: "הורדות:", ctx: partCtx, kind: TokenSkip, text: "הורדות:"},
		{name: "reduction_header_both", line: "הורדות לשתי האפשרויות:", ctx: questionCtx, kind: TokenSkip, text: "הורדות לשתי האפשרויות:"},
		{name: "reduction", line: "שגיאת חישוב – להוריד 3%", ctx: partCtx, kind: TokenReduction, text: "שגיאת חישוב", value: 3},
		{name: "no_reduction", line: "שגיאה קלה – לא להוריד נקודות", ctx: partCtx, kind: TokenReduction, text: "שגיאה קלה"},
		{name: "reduction_hyphenated_mistake", line: "אי-שימוש בלולאה — להוריד 5%", ctx: questionCtx, kind: TokenReduction, text: "אי-שימוש בלולאה", value: 5},
		{name: "step", line: "תשובה נכונה – 5%", ctx: partCtx, kind: TokenStep, text: "תשובה נכונה", value: 5},
		{name: "step_in_general", line: "כלל נוסף – 5%", ctx: generalCtx, kind: TokenStep, text: "כלל נוסף", value: 5},
		{name: "general_rule", line: "אין להשתמש במחשבון, הורדה של 10%", ctx: generalCtx, kind: TokenGeneralRule, text: "אין להשתמש במחשבון, הורדה של 10%", value: 10},
		{name: "general_rule_without_value", line: "יש לכתוב בעט בלבד", ctx: generalCtx, kind: TokenGeneralRule, text: "יש לכתוב בעט בלבד"},
		{name: "part_header_in_general", line: "סעיף א – 20%", ctx: generalCtx, kind: TokenGeneralRule, text: "סעיף א – 20%", value: 20},
		{name: "question_number_with_letter", line: "שאלה 12א – נושא", ctx: Context{}, kind: TokenUnmatched, text: "שאלה 12א – נושא"},
		{name: "unmatched_in_question", line: "טקסט חופשי", ctx: questionCtx, kind: TokenUnmatched, text: "טקסט חופשי"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := Classify(tc.line, tc.ctx)
			require.Equal(t, tc.kind, tok.Kind, "kind %s", tok.Kind)
			require.Equal(t, tc.number, tok.Number)
			require.Equal(t, tc.text, tok.Text)
			require.Equal(t, tc.value, tok.Value)
			require.Equal(t, tc.line, tok.Line)
		})
	}
}

func TestClassifyHeadersNeverBecomeSteps(t *testing.T) {
	for _, line := range []string{"שאלה 3 – 25%", "סעיף ג – 40%"} {
		tok := Classify(line, partCtx)
		require.NotEqual(t, TokenStep, tok.Kind, line)
	}
}

func TestClassifyObjectOrientedHeaderBeatsQuestionHeader(t *testing.T) {
	tok := Classify(NormalizeLine("שאלה 11 – תכנות מונחה עצמים"), questionCtx)
	require.Equal(t, TokenQuestionHeader, tok.Kind)
	require.Equal(t, "שאלה 11 – תכנות מונחה עצמים", tok.Text)

	tok = Classify(NormalizeLine("מונחה עצמים – שאלות 11 ו-13"), questionCtx)
	require.Equal(t, TokenQuestionHeader, tok.Kind)
	require.Equal(t, "11/13", tok.Number)
}

func TestBuildDropsQuestionNumberWithLetterSuffix(t *testing.T) {
	tree, dropped, seen := Build([]string{"שאלה 1 – מערכים", "שאלה 12א – נושא"})
	require.Equal(t, 2, seen)
	require.Len(t, tree.Questions, 1)
	require.Equal(t, "1", tree.Questions[0].QuestionNumber)
	require.Len(t, dropped, 1)
	require.Equal(t, 2, dropped[0].Number)
	require.Equal(t, "שאלה 12א – נושא", dropped[0].Text)
}

func TestRuleNamesKeepsPriorityOrder(t *testing.T) {
	require.Equal(t, []string{
		"general_marker",
		"compound_header",
		"question_header",
		"part_header",
		"alternative",
		"reduction_header",
		"reduction",
		"step",
		"general_rule",
	}, RuleNames())
}

func TestTrailingPercentTakesLastMatch(t *testing.T) {
	require.Equal(t, 10, TrailingPercent("ניקוד 5% ועוד 10%"))
	require.Equal(t, 0, TrailingPercent("ללא ניקוד"))
}

func TestNormalizeLine(t *testing.T) {
	rlm := string(rune(0x200F))
	nbsp := string(rune(0x00A0))
	bullet := string(rune(0x2022))

	require.Equal(t, "שאלה 1 – נושא", NormalizeLine(rlm+"שאלה  1"+nbsp+"– נושא  "))
	require.Equal(t, "תשובה – 5%", NormalizeLine(bullet+" תשובה – 5%"))
	require.Empty(t, NormalizeLine(" \t"+rlm+" "))
}
