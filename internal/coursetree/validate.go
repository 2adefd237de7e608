package coursetree

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/util"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPassingScore   = 60
	DefaultQuestionPoints = 1
	DefaultMaxScore       = 100
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// 与 gin 的 binding 标签保持一致，字段名取 json 名
func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate 结构校验 + 题目语义校验，错误字段使用 topics[0].lessons[1].title 形式的路径
func Validate(topics []TopicPayload) error {
	var fields []util.FieldError
	v := payloadValidator()
	for i := range topics {
		prefix := fmt.Sprintf("topics[%d]", i)
		if err := v.Struct(&topics[i]); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return util.NewValidationError(err)
			}
			for _, fe := range verrs {
				fields = append(fields, util.FieldError{
					Field: prefix + trimRoot(fe.Namespace()),
					Error: describe(fe),
				})
			}
		}
		for j := range topics[i].Lessons {
			l := &topics[i].Lessons[j]
			lpath := fmt.Sprintf("%s.lessons[%d]", prefix, j)
			if err := checkLessonType(l, lpath); err != nil {
				var ve *util.ValidationError
				if errors.As(err, &ve) {
					fields = append(fields, ve.Fields...)
				}
			}
			if l.Quiz == nil {
				continue
			}
			for k := range l.Quiz.Questions {
				if _, _, err := NormalizeQuestion(&l.Quiz.Questions[k]); err != nil {
					fields = append(fields, util.FieldError{
						Field: fmt.Sprintf("%s.quiz.questions[%d]", lpath, k),
						Error: err.Error(),
					})
				}
			}
		}
	}
	if len(fields) > 0 {
		return &util.ValidationError{Err: errors.New("invalid course content"), Fields: fields}
	}
	return nil
}

// TopicPayload.lessons[0].title -> .lessons[0].title
func trimRoot(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i:]
	}
	return ""
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

var trueFalseOptions = []string{"True", "False"}

// NormalizeQuestion 返回规范化后的选项与正确答案下标。
// 判断题缺省选项为 True/False；排序题缺省答案为选项原始顺序。
func NormalizeQuestion(p *QuestionPayload) ([]string, []int, error) {
	options := p.Options
	answers := p.CorrectAnswers

	switch p.Type {
	case model.QuestionTrueFalse:
		if len(options) == 0 {
			options = trueFalseOptions
		}
		if len(options) != 2 {
			return nil, nil, fmt.Errorf("true_false question must have exactly 2 options")
		}
	case model.QuestionOrder:
		if len(options) < 2 {
			return nil, nil, fmt.Errorf("order question needs at least 2 options")
		}
		if len(answers) == 0 {
			answers = make([]int, len(options))
			for i := range answers {
				answers[i] = i
			}
		}
	case model.QuestionSingle, model.QuestionMultiple:
		if len(options) < 2 {
			return nil, nil, fmt.Errorf("%s question needs at least 2 options", p.Type)
		}
	default:
		return nil, nil, fmt.Errorf("unknown question type %q", p.Type)
	}

	seen := make(map[int]bool, len(answers))
	for _, a := range answers {
		if a < 0 || a >= len(options) {
			return nil, nil, fmt.Errorf("answer index %d out of range", a)
		}
		if seen[a] {
			return nil, nil, fmt.Errorf("answer index %d repeated", a)
		}
		seen[a] = true
	}

	switch p.Type {
	case model.QuestionSingle, model.QuestionTrueFalse:
		if len(answers) != 1 {
			return nil, nil, fmt.Errorf("%s question must have exactly one correct answer", p.Type)
		}
	case model.QuestionMultiple:
		if len(answers) == 0 {
			return nil, nil, fmt.Errorf("multiple question needs at least one correct answer")
		}
	case model.QuestionOrder:
		if len(answers) != len(options) {
			return nil, nil, fmt.Errorf("order answer must be a permutation of all options")
		}
	}
	return options, answers, nil
}
