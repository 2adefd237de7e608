package coursetree

import (
	"errors"
	"testing"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOK(t *testing.T) {
	err := Validate([]TopicPayload{{Title: "T", Lessons: []LessonPayload{
		{Title: "intro", Type: model.LessonTypeLesson},
		{Title: "quiz", Type: model.LessonTypeQuiz, Quiz: &QuizPayload{Questions: []QuestionPayload{
			{Question: "2+2", Type: model.QuestionSingle, Options: []string{"3", "4"}, CorrectAnswers: []int{1}},
		}}},
	}}})
	assert.NoError(t, err)
}

func TestValidateFieldPaths(t *testing.T) {
	err := Validate([]TopicPayload{{Title: "T", Lessons: []LessonPayload{
		{Title: "ok", Type: model.LessonTypeLesson},
		{Type: "video"},
	}}})
	require.Error(t, err)

	var ve *util.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Error
	}
	assert.Equal(t, "is required", fields["topics[0].lessons[1].title"])
	assert.Contains(t, fields["topics[0].lessons[1].type"], "must be one of")
}

func TestValidateQuestionSemantics(t *testing.T) {
	err := Validate([]TopicPayload{{Title: "T", Lessons: []LessonPayload{
		{Title: "q", Type: model.LessonTypeQuiz, Quiz: &QuizPayload{Questions: []QuestionPayload{
			{Question: "x", Type: model.QuestionSingle, Options: []string{"a", "b"}, CorrectAnswers: []int{0, 1}},
		}}},
	}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid course content")
	var ve *util.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "topics[0].lessons[0].quiz.questions[0]", ve.Fields[0].Field)
}

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		name    string
		in      QuestionPayload
		options []string
		answers []int
		wantErr bool
	}{
		{"true_false defaults", QuestionPayload{Type: model.QuestionTrueFalse, CorrectAnswers: []int{0}}, []string{"True", "False"}, []int{0}, false},
		{"order defaults to identity", QuestionPayload{Type: model.QuestionOrder, Options: []string{"a", "b", "c"}}, []string{"a", "b", "c"}, []int{0, 1, 2}, false},
		{"order partial", QuestionPayload{Type: model.QuestionOrder, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{2, 0}}, nil, nil, true},
		{"multiple", QuestionPayload{Type: model.QuestionMultiple, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{0, 2}}, []string{"a", "b", "c"}, []int{0, 2}, false},
		{"multiple none", QuestionPayload{Type: model.QuestionMultiple, Options: []string{"a", "b"}}, nil, nil, true},
		{"out of range", QuestionPayload{Type: model.QuestionSingle, Options: []string{"a", "b"}, CorrectAnswers: []int{2}}, nil, nil, true},
		{"repeated", QuestionPayload{Type: model.QuestionMultiple, Options: []string{"a", "b"}, CorrectAnswers: []int{1, 1}}, nil, nil, true},
		{"unknown type", QuestionPayload{Type: "essay"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options, answers, err := NormalizeQuestion(&tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.options, options)
			assert.Equal(t, tt.answers, answers)
		})
	}
}
