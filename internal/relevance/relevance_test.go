package relevance

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ryosukesatoh/arxiv-digest/internal/fallback"
	"github.com/ryosukesatoh/arxiv-digest/internal/llm"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestNoFieldAlwaysMatches(t *testing.T) {
	m := new(mockCompleter)
	c := New("", m, zerolog.Nop())

	for _, abstract := range []string{"", "quantum chemistry", "protein folding with transformers"} {
		res := c.Classify(context.Background(), abstract)
		assert.True(t, res.Value)
		assert.Equal(t, fallback.Success, res.Path)
	}
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFieldWithoutCredentialsFailsClosed(t *testing.T) {
	c := New("computer vision", nil, zerolog.Nop())

	for _, abstract := range []string{"", "image segmentation", "anything"} {
		res := c.Classify(context.Background(), abstract)
		assert.False(t, res.Value)
		assert.True(t, res.FellBack())
		assert.ErrorIs(t, res.Err, fallback.ErrNoCredentials)
	}
}

func TestClassifyInterpretsAnswer(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"Yes", true},
		{"yes.", true},
		{"  YES, it does", true},
		{"No", false},
		{"Not really, yes in part", false},
		{"It belongs to the field", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			m := new(mockCompleter)
			m.On("Complete", mock.Anything, mock.Anything).Return(tt.answer, nil).Once()

			res := New("robotics", m, zerolog.Nop()).Classify(context.Background(), "abstract")
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, fallback.Success, res.Path)
			m.AssertExpectations(t)
		})
	}
}

func TestClassifyPrompt(t *testing.T) {
	m := new(mockCompleter)
	want := llm.Request{
		User:        "Does the following abstract belong to the field 'robotics'? Answer Yes or No.\nWe build a robot arm.",
		Temperature: 0,
	}
	m.On("Complete", mock.Anything, want).Return("Yes", nil).Once()

	res := New(" robotics ", m, zerolog.Nop()).Classify(context.Background(), "We build a robot arm.")
	assert.True(t, res.Value)
	m.AssertExpectations(t)
}

func TestClassifyCallFailure(t *testing.T) {
	m := new(mockCompleter)
	boom := errors.New("connection reset")
	m.On("Complete", mock.Anything, mock.Anything).Return("", boom).Once()

	res := New("robotics", m, zerolog.Nop()).Classify(context.Background(), "abstract")
	assert.False(t, res.Value)
	assert.True(t, res.FellBack())
	assert.ErrorIs(t, res.Err, boom)
}
