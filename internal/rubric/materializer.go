package rubric

import "github.com/noah-isme/gema-rubric-api/internal/models"

// Materialize flattens the parse tree into metrics. General rules come first, then each
// question in encounter order: its title, its question-level steps, alternatives and
// reductions, then every part as a part score record followed by the part's own facts.
func Materialize(examID uint, r Rubric) []models.Metric {
	metrics := make([]models.Metric, 0, estimateSize(r))

	for _, rule := range r.General {
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr(models.GeneralQuestionNumber),
			RuleDescription: rule.Description,
			Score:           models.IntPtr(rule.Value),
			ScoreType:       rule.Type,
		})
	}

	for _, question := range r.Questions {
		number := question.QuestionNumber
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr(number),
			RuleDescription: question.QuestionTitle,
			ScoreType:       models.ScoreTypeQuestionTitle,
		})
		metrics = appendFacts(metrics, examID, number, "",
			question.GeneralSolutionSteps, question.GeneralAlternativeSolutions, question.GeneralReductions)

		for _, part := range question.Parts {
			metrics = append(metrics, models.Metric{
				ExamID:          examID,
				QuestionNumber:  models.StringPtr(number),
				Part:            models.StringPtr(part.PartName),
				RuleDescription: part.PartLabel,
				Score:           models.IntPtr(part.PartScore),
				ScoreType:       models.ScoreTypePartScore,
			})
			metrics = appendFacts(metrics, examID, number, part.PartName,
				part.SolutionSteps, part.AlternativeSolutions, part.Reductions)
		}
	}

	return metrics
}

// appendFacts allocates fresh pointers per record so no two metrics share a field.
func appendFacts(metrics []models.Metric, examID uint, number, part string, steps, alternatives []SolutionStep, reductions []Reduction) []models.Metric {
	for _, step := range steps {
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr(number),
			Part:            models.StringPtr(part),
			RuleDescription: step.Description,
			Score:           models.IntPtr(step.Value),
			ScoreType:       step.Type,
		})
	}
	for _, alternative := range alternatives {
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr(number),
			Part:            models.StringPtr(part),
			RuleDescription: alternative.Description,
			ScoreType:       alternative.Type,
		})
	}
	for _, reduction := range reductions {
		metrics = append(metrics, models.Metric{
			ExamID:          examID,
			QuestionNumber:  models.StringPtr(number),
			Part:            models.StringPtr(part),
			RuleDescription: reduction.Mistake,
			Score:           models.IntPtr(reduction.Value),
			ScoreType:       reduction.Type,
		})
	}
	return metrics
}

func estimateSize(r Rubric) int {
	size := len(r.General)
	for _, question := range r.Questions {
		size += 1 + len(question.GeneralSolutionSteps) + len(question.GeneralAlternativeSolutions) + len(question.GeneralReductions)
		for _, part := range question.Parts {
			size += 1 + len(part.SolutionSteps) + len(part.AlternativeSolutions) + len(part.Reductions)
		}
	}
	return size
}
