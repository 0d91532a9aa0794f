package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/relay/pkg/providers"
)

func TestTiktokenEstimator_Supports(t *testing.T) {
	e := NewTiktokenEstimator(nil)

	assert.True(t, e.Supports("gpt-4o"))
	assert.True(t, e.Supports("GPT-3.5-turbo"))
	assert.True(t, e.Supports("o1-mini"))
	assert.False(t, e.Supports("claude-3-opus"))
	assert.False(t, e.Supports("llama3"))
}

func TestTiktokenEstimator_CountsOpenAIText(t *testing.T) {
	e := NewTiktokenEstimator(nil)

	n, err := e.EstimateText("hello world", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.EstimateText("", "gpt-4o")
	require.NoError(t, err)
	assert.Zero(t, n)
}

type countingEstimator struct{ calls int }

func (c *countingEstimator) EstimateText(text, model string) (int, error) {
	c.calls++
	return 42, nil
}

func (c *countingEstimator) EstimateMessages(messages []providers.Message, model string) (int, error) {
	c.calls++
	return 7, nil
}

func TestTiktokenEstimator_FallsBackForOtherModels(t *testing.T) {
	fallback := &countingEstimator{}
	e := NewTiktokenEstimator(fallback)

	n, err := e.EstimateText("hello", "claude-3-haiku")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = e.EstimateMessages([]providers.Message{{Role: "user", Content: "hi"}}, "claude-3-haiku")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 2, fallback.calls)
}

func TestTiktokenEstimator_MessagesFraming(t *testing.T) {
	e := NewTiktokenEstimator(nil)

	n, err := e.EstimateMessages([]providers.Message{
		{Role: providers.RoleUser, Content: "hello world"},
	}, "gpt-4o")
	require.NoError(t, err)
	// 4 framing + 2 content + 3 priming
	assert.Equal(t, 9, n)
}
