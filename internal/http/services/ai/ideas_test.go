package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/genai"
)

func TestParseList(t *testing.T) {
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList("  \n "))
	assert.Equal(t, []string{"a", "b", "c"}, ParseList("a, b\n\nc,,"))
}

func TestParseIdeas(t *testing.T) {
	raw := "1. one\n2) two\n\n   3.three\n10. ten\nplain"
	assert.Equal(t, []string{"one", "two", "three", "ten", "plain"}, ParseIdeas(raw))

	var b strings.Builder
	for i := 1; i <= 75; i++ {
		fmt.Fprintf(&b, "%d. idea %d\n", i, i)
	}
	ideas := ParseIdeas(b.String())
	require.Len(t, ideas, IdeaCount)
	assert.Equal(t, "idea 60", ideas[59])

	assert.Empty(t, ParseIdeas(""))
}

func TestIdeaInputs(t *testing.T) {
	in := IdeaInputsFrom(&repository.CreatorUniverse{
		ContentPillars: []repository.ContentPillar{
			{Name: "A", Ideas: []string{" x ", ""}},
			{Name: "B"},
			{Name: "C", Ideas: []string{"y"}},
		},
		Avatar: repository.Avatar{Psychographic: repository.Psychographic{Struggles: "s1", Desires: ""}},
	})
	assert.Equal(t, []string{"x", "y"}, in.Topics)
	assert.False(t, in.Complete())

	in.Desires = []string{"d1"}
	require.True(t, in.Complete())
	p := in.Prompt()
	assert.True(t, strings.HasPrefix(p, "Struggles (target avatar):\n  1. s1\n\nTopics"))
	assert.Contains(t, p, "clearly map to struggle → topic → desire")
}

type fakeGen struct {
	out   string
	err   error
	calls int
}

func (f *fakeGen) Configured() bool { return true }
func (f *fakeGen) Generate(context.Context, string, genai.GenerationConfig) (string, error) {
	f.calls++
	return f.out, f.err
}

type memQuota map[string]bool

func (q memQuota) Allowed(_ context.Context, feature, user string) bool { return !q[feature+user] }
func (q memQuota) Record(_ context.Context, feature, user string)       { q[feature+user] = true }

func TestServiceQuotaRecordedOnlyOnSuccess(t *testing.T) {
	gen := &fakeGen{err: &genai.UpstreamError{Status: 500, Body: "x"}}
	q := memQuota{}
	s := NewService(Deps{AI: gen, Quota: q})

	_, err := s.GenerateScript(context.Background(), "u1", "p")
	var up *genai.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Empty(t, q)

	gen.err, gen.out = nil, "done"
	out, err := s.GenerateScript(context.Background(), "u1", "p")
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	_, err = s.GenerateScript(context.Background(), "u1", "p")
	assert.ErrorIs(t, err, ErrDailyLimit)
	assert.Equal(t, 2, gen.calls)
}

func TestServiceIdeasWithoutRepository(t *testing.T) {
	s := NewService(Deps{AI: &fakeGen{}})
	_, err := s.GenerateIdeas(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoUniverseSource)
}
