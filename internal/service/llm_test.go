package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name    string
	reply   *Message
	err     error
	calls   int
	lastReq *ChatRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Chat(ctx context.Context, req *ChatRequest) (*Message, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func TestProviderChainFirstSuccessWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", reply: &Message{Role: "assistant", Content: "from primary"}}
	fallback := &fakeProvider{name: "fallback", reply: &Message{Role: "assistant", Content: "from fallback"}}
	chain := NewProviderChain(zap.NewNop(), primary, fallback)

	msg, err := chain.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", msg.Content)
	assert.Equal(t, 0, fallback.calls)
}

func TestProviderChainFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("quota exceeded")}
	fallback := &fakeProvider{name: "fallback", reply: &Message{Role: "assistant", Content: "from fallback"}}
	chain := NewProviderChain(zap.NewNop(), primary, fallback)

	msg, err := chain.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", msg.Content)
	assert.Equal(t, 1, primary.calls)
}

func TestProviderChainAllFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("timeout")}
	fallback := &fakeProvider{name: "fallback", err: errors.New("503")}
	chain := NewProviderChain(zap.NewNop(), primary, fallback)

	_, err := chain.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestParseJSONContentStripsCodeFence(t *testing.T) {
	var out map[string]interface{}
	err := ParseJSONContent("```json\n{\"a\": 1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}
