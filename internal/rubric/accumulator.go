package rubric

import "github.com/noah-isme/gema-rubric-api/internal/models"

// GeneralRule is an exam-wide rule from the general section.
type GeneralRule struct {
	Description string
	Value       int
	Type        models.ScoreType
}

// SolutionStep is a scored step or, when Type is AlternativeSolution, an alternate approach.
type SolutionStep struct {
	Description string
	Value       int
	Type        models.ScoreType
}

// Reduction pairs a named mistake with its point reduction.
type Reduction struct {
	Mistake string
	Value   int
	Type    models.ScoreType
}

// QuestionPart is a lettered subdivision of a question.
type QuestionPart struct {
	PartName             string
	PartLabel            string
	PartScore            int
	SolutionSteps        []SolutionStep
	AlternativeSolutions []SolutionStep
	Reductions           []Reduction
}

// ExamQuestion holds everything parsed under one question header.
type ExamQuestion struct {
	QuestionNumber              string
	QuestionTitle               string
	Parts                       []QuestionPart
	GeneralSolutionSteps        []SolutionStep
	GeneralAlternativeSolutions []SolutionStep
	GeneralReductions           []Reduction
}

// Rubric is the parse tree: an arena of questions referenced by index from State.
type Rubric struct {
	General   []GeneralRule
	Questions []ExamQuestion
}

// Mode is the accumulator's position in the document hierarchy.
type Mode int

const (
	// ModeGeneral collects exam-wide rules.
	ModeGeneral Mode = iota
	// ModeInQuestion attaches facts to the current question.
	ModeInQuestion
	// ModeInPart attaches facts to the current part of the current question.
	ModeInPart
)

// State addresses the open question and part inside a Rubric arena. Indexes are -1
// when the corresponding level is closed.
type State struct {
	Mode     Mode
	Question int
	Part     int
}

// InitialState is the state before the first line: the general section, nothing open.
func InitialState() State {
	return State{Mode: ModeGeneral, Question: -1, Part: -1}
}

// Context exposes the parts of the state the classifier depends on.
func (s State) Context() Context {
	return Context{
		InGeneral:  s.Mode == ModeGeneral,
		InQuestion: s.Mode == ModeInQuestion || s.Mode == ModeInPart,
		InPart:     s.Mode == ModeInPart,
	}
}

// Apply folds one token into the arena and returns the next state.
func (r *Rubric) Apply(s State, tok Token) State {
	switch tok.Kind {
	case TokenEnterGeneral:
		return InitialState()
	case TokenQuestionHeader:
		r.Questions = append(r.Questions, ExamQuestion{
			QuestionNumber: tok.Number,
			QuestionTitle:  tok.Text,
		})
		return State{Mode: ModeInQuestion, Question: len(r.Questions) - 1, Part: -1}
	case TokenPartHeader:
		if s.Mode == ModeGeneral {
			return s
		}
		question := &r.Questions[s.Question]
		question.Parts = append(question.Parts, QuestionPart{
			PartName:  tok.Number,
			PartLabel: tok.Text,
			PartScore: tok.Value,
		})
		return State{Mode: ModeInPart, Question: s.Question, Part: len(question.Parts) - 1}
	case TokenAlternative, TokenReduction, TokenStep:
		if s.Mode == ModeGeneral {
			r.appendGeneral(tok.Line, TrailingPercent(tok.Line))
			return s
		}
		r.attach(s, tok)
	case TokenGeneralRule:
		if s.Mode == ModeGeneral {
			r.appendGeneral(tok.Text, tok.Value)
		}
	}
	return s
}

func (r *Rubric) appendGeneral(description string, value int) {
	r.General = append(r.General, GeneralRule{
		Description: description,
		Value:       value,
		Type:        models.ScoreTypeGeneralPenalty,
	})
}

func (r *Rubric) attach(s State, tok Token) {
	question := &r.Questions[s.Question]
	if s.Mode == ModeInPart {
		part := &question.Parts[s.Part]
		switch tok.Kind {
		case TokenAlternative:
			part.AlternativeSolutions = append(part.AlternativeSolutions, alternativeOf(tok))
		case TokenReduction:
			part.Reductions = append(part.Reductions, reductionOf(tok))
		case TokenStep:
			part.SolutionSteps = append(part.SolutionSteps, stepOf(tok))
		}
		return
	}

	switch tok.Kind {
	case TokenAlternative:
		question.GeneralAlternativeSolutions = append(question.GeneralAlternativeSolutions, alternativeOf(tok))
	case TokenReduction:
		question.GeneralReductions = append(question.GeneralReductions, reductionOf(tok))
	case TokenStep:
		question.GeneralSolutionSteps = append(question.GeneralSolutionSteps, stepOf(tok))
	}
}

func alternativeOf(tok Token) SolutionStep {
	return SolutionStep{Description: tok.Text, Type: models.ScoreTypeAlternativeSolution}
}

func reductionOf(tok Token) Reduction {
	return Reduction{Mistake: tok.Text, Value: tok.Value, Type: models.ScoreTypePenalty}
}

func stepOf(tok Token) SolutionStep {
	return SolutionStep{Description: tok.Text, Value: tok.Value, Type: models.ScoreTypeScore}
}
