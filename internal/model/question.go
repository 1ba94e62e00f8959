package model

// QuestionType determines how a question is presented and answered.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeFreeText       QuestionType = "FREE_TEXT"
)

// Question_Type values used by the record store.
const (
	StoreTypeMultipleChoice = "MCQ"
	StoreTypeTrueFalse      = "True/False"
)

// TrueFalseOptions are the fixed options of a TRUE_FALSE question.
var TrueFalseOptions = []string{"True", "False"}

// ParseQuestionType maps a store Question_Type to a QuestionType.
// Anything unrecognised is answered as free text.
func ParseQuestionType(raw string) QuestionType {
	switch raw {
	case StoreTypeMultipleChoice:
		return QuestionTypeMultipleChoice
	case StoreTypeTrueFalse:
		return QuestionTypeTrueFalse
	default:
		return QuestionTypeFreeText
	}
}

// Question represents a single exam question.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Description string       `json:"description"`
}

// Choice is one option of a MULTIPLE_CHOICE question.
type Choice struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// AnswerRequest is the payload for answering a single question.
type AnswerRequest struct {
	Answer string `json:"answer" binding:"max=4000"`
}
