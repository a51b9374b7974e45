package advice

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trashd/internal/apperr"
)

type fakeGen struct {
	calls   atomic.Int32
	prompts []string
	fn      func(ctx context.Context, attempt int) (string, error)
}

func (g *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	n := g.calls.Add(1)
	g.prompts = append(g.prompts, prompt)
	return g.fn(ctx, int(n))
}

func TestSuggest_DisabledNeverCallsBackend(t *testing.T) {
	c := New(nil, Options{})
	assert.False(t, c.Enabled())
	_, err := c.Suggest(context.Background(), "Plastic")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindServiceUnavailable))
}

func TestSuggest_ReturnsTextVerbatim(t *testing.T) {
	want := "1. Primary Disposal Method\nRinse.\n2. Recycling or Reuse Ideas\nPlanters.\n3. Important Note\nCheck local rules."
	g := &fakeGen{fn: func(context.Context, int) (string, error) { return want, nil }}
	c := New(g, Options{})
	got, err := c.Suggest(context.Background(), "  Plastic ")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.Len(t, g.prompts, 1)
	assert.Contains(t, g.prompts[0], "'Plastic'")
	for _, s := range Sections {
		assert.Contains(t, g.prompts[0], s)
	}
}

func TestSuggest_BlankCategory(t *testing.T) {
	g := &fakeGen{fn: func(context.Context, int) (string, error) { return "x", nil }}
	_, err := New(g, Options{}).Suggest(context.Background(), "   ")
	assert.True(t, apperr.Is(err, apperr.KindClientInput))
	assert.Zero(t, g.calls.Load())
}

func TestSuggest_UpstreamErrorWithoutRetry(t *testing.T) {
	g := &fakeGen{fn: func(context.Context, int) (string, error) { return "", errors.New("googleapi: 500") }}
	_, err := New(g, Options{}).Suggest(context.Background(), "Glass")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestSuggest_EmptyResponseIsUpstreamError(t *testing.T) {
	g := &fakeGen{fn: func(context.Context, int) (string, error) { return "  ", nil }}
	_, err := New(g, Options{}).Suggest(context.Background(), "Glass")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestSuggest_TimeoutIsDistinct(t *testing.T) {
	g := &fakeGen{fn: func(ctx context.Context, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := New(g, Options{Timeout: 20 * time.Millisecond, MaxRetries: 3})
	start := time.Now()
	_, err := c.Suggest(context.Background(), "Metal")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), g.calls.Load(), "timeouts are not retried")
}

func TestSuggest_CallerCancellationPropagates(t *testing.T) {
	started := make(chan struct{})
	g := &fakeGen{fn: func(ctx context.Context, _ int) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := New(g, Options{}).Suggest(ctx, "Paper")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuggest_BoundedRetry(t *testing.T) {
	g := &fakeGen{fn: func(_ context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errors.New("transient")
		}
		return "tips", nil
	}}
	c := New(g, Options{MaxRetries: 2, RetryInitial: time.Millisecond})
	got, err := c.Suggest(context.Background(), "Cardboard")
	require.NoError(t, err)
	assert.Equal(t, "tips", got)
	assert.Equal(t, int32(3), g.calls.Load())
}

func TestSuggest_RetriesExhausted(t *testing.T) {
	g := &fakeGen{fn: func(context.Context, int) (string, error) { return "", errors.New("still down") }}
	c := New(g, Options{MaxRetries: 2, RetryInitial: time.Millisecond})
	_, err := c.Suggest(context.Background(), "Cardboard")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, int32(3), g.calls.Load())
}

func TestPrompt_ThreePartTemplate(t *testing.T) {
	p := Prompt("Trash")
	assert.True(t, strings.HasPrefix(p, "Provide eco-friendly disposal and recycling tips for 'Trash'."))
	assert.Contains(t, p, "1. Primary Disposal Method")
	assert.Contains(t, p, "2. Recycling or Reuse Ideas")
	assert.Contains(t, p, "3. Important Note")
}
