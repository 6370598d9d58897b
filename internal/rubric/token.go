package rubric

// Kind enumerates the closed set of tokens a rubric line can produce.
type Kind int

const (
	// TokenUnmatched is produced for lines outside the general section that match no rule.
	TokenUnmatched Kind = iota
	// TokenEnterGeneral opens the general section and closes any open question.
	TokenEnterGeneral
	// TokenQuestionHeader opens a new question (single or compound).
	TokenQuestionHeader
	// TokenPartHeader opens a lettered part inside the current question.
	TokenPartHeader
	// TokenAlternative marks an alternate accepted solution.
	TokenAlternative
	// TokenSkip is a structural marker that carries no data.
	TokenSkip
	// TokenReduction is a named mistake with its point reduction.
	TokenReduction
	// TokenStep is a scored solution step.
	TokenStep
	// TokenGeneralRule is an exam-wide rule line.
	TokenGeneralRule
)

var kindNames = map[Kind]string{
	TokenUnmatched:      "unmatched",
	TokenEnterGeneral:   "enter_general",
	TokenQuestionHeader: "question_header",
	TokenPartHeader:     "part_header",
	TokenAlternative:    "alternative",
	TokenSkip:           "skip",
	TokenReduction:      "reduction",
	TokenStep:           "step",
	TokenGeneralRule:    "general_rule",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Token is the classification of a single rubric line.
//
// Number holds the question number for question headers and the part letter for part
// headers. Text holds the title, description, mistake or rule text depending on Kind.
// Value is the percentage carried by part headers, steps, reductions and general rules.
type Token struct {
	Kind   Kind
	Number string
	Text   string
	Value  int
	Line   string
}

// Context is the slice of accumulator state the classifier needs.
type Context struct {
	InGeneral  bool
	InQuestion bool
	InPart     bool
}
