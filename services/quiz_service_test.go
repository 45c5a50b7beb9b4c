package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuiz() QuizInput {
	return QuizInput{
		Title:        "Basics",
		PassingScore: 60,
		Questions: []QuestionInput{
			{Prompt: "Zero value of int?", Options: []string{"0", "nil", "undefined"}, CorrectIndex: 0},
			{Prompt: "Keyword to start a goroutine?", Options: []string{"async", "go"}, CorrectIndex: 1},
			{Prompt: "Is a map safe for concurrent writes?", Options: []string{"yes", "no"}, CorrectIndex: 1},
		},
	}
}

func TestQuizValidation(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewQuizService(db)
	course := createCourse(t, db, "Go", 100)

	in := sampleQuiz()
	in.Questions[0].Options = []string{"only one"}
	_, err := svc.Create(ctx, course.ID, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	in = sampleQuiz()
	in.Questions[1].CorrectIndex = 5
	_, err = svc.Create(ctx, course.ID, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = svc.Create(ctx, uuid.New(), sampleQuiz())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	other := createCourse(t, db, "Rust", 100)
	foreignLesson := createLesson(t, db, other.ID, "Ownership", 1)
	in = sampleQuiz()
	in.LessonID = &foreignLesson.ID
	_, err = svc.Create(ctx, course.ID, in)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestQuizAttempt(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewQuizService(db)

	course := createCourse(t, db, "Go", 100)
	student := createUser(t, db, "a@example.com")
	stranger := createUser(t, db, "b@example.com")
	createEnrollment(t, db, student.ID, course.ID)

	quiz, err := svc.Create(ctx, course.ID, sampleQuiz())
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 3)

	_, err = svc.SubmitAttempt(ctx, stranger.ID, quiz.ID, []int{0, 1, 1})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.SubmitAttempt(ctx, student.ID, quiz.ID, []int{0})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	attempt, err := svc.SubmitAttempt(ctx, student.ID, quiz.ID, []int{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.Correct)
	assert.Equal(t, 66.67, attempt.Score)
	assert.True(t, attempt.Passed)

	attempt, err = svc.SubmitAttempt(ctx, student.ID, quiz.ID, []int{2, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, attempt.Score)
	assert.False(t, attempt.Passed)

	attempts, err := svc.ListAttempts(ctx, student.ID, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestQuizUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewQuizService(db)
	course := createCourse(t, db, "Go", 100)

	quiz, err := svc.Create(ctx, course.ID, sampleQuiz())
	require.NoError(t, err)

	in := sampleQuiz()
	in.Title = "Basics v2"
	in.Questions = in.Questions[:1]
	updated, err := svc.Update(ctx, quiz.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Basics v2", updated.Title)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, []string{"0", "nil", "undefined"}, updated.Questions[0].OptionList())
	assert.Equal(t, int64(1), countRows(t, db, &model.QuizQuestion{}, ""))

	list, err := svc.ListForCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, quiz.ID))
	_, err = svc.Get(ctx, quiz.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, int64(0), countRows(t, db, &model.QuizQuestion{}, ""))
}
