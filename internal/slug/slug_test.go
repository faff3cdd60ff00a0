package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"My First Post", "my-first-post"},
		{"  Hello,   World!! ", "hello-world"},
		{"--Go_lang & Rust--", "go-lang-rust"},
		{"Crème Brûlée Recipe", "creme-brulee-recipe"},
		{"2024: A Year in Review", "2024-a-year-in-review"},
		{"日本語", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

// takenSet simulates the slug column of the posts table.
type takenSet map[string]bool

func (s takenSet) exists(_ context.Context, candidate string) (bool, error) {
	return s[candidate], nil
}

func TestAssign_SequentialCollisions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	taken := takenSet{}

	want := []string{"my-first-post", "my-first-post-1", "my-first-post-2", "my-first-post-3"}
	for _, expected := range want {
		got, err := Assign(ctx, "My First Post", taken.exists)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
		taken[got] = true
	}
}

func TestAssign_DifferentTitlesSameBase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	taken := takenSet{}

	for i, title := range []string{"Hello World", "hello world!", "HELLO -- WORLD"} {
		got, err := Assign(ctx, title, taken.exists)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, "hello-world", got)
		} else {
			assert.Equal(t, "hello-world-"+string(rune('0'+i)), got)
		}
		taken[got] = true
	}
}

func TestAssign_EmptyBaseFallsBack(t *testing.T) {
	t.Parallel()
	got, err := Assign(context.Background(), "!!!", takenSet{}.exists)
	require.NoError(t, err)
	assert.Equal(t, Fallback, got)
}

func TestAssign_TruncatesAfterResolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	long := strings.Repeat("a", MaxLength)

	// The untruncated base is free, so it is returned truncated to itself.
	got, err := Assign(ctx, long, takenSet{}.exists)
	require.NoError(t, err)
	assert.Equal(t, long, got)

	// With the base taken the suffix is added to the full base and then cut,
	// which yields the same string: the accepted truncated collision.
	var checked []string
	exists := func(_ context.Context, candidate string) (bool, error) {
		checked = append(checked, candidate)
		return candidate == long, nil
	}
	got, err = Assign(ctx, long, exists)
	require.NoError(t, err)
	require.Len(t, checked, 2)
	assert.Equal(t, long+"-1", checked[1])
	assert.Len(t, got, MaxLength)
	assert.Equal(t, long, got)
}

func TestAssign_CheckerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	_, err := Assign(context.Background(), "title", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestAssign_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Assign(ctx, "title", takenSet{}.exists)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignFitted_KeepsSuffixWithinMaxLength(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	long := strings.Repeat("a", MaxLength+20)
	stored := takenSet{strings.Repeat("a", MaxLength): true}

	got, err := AssignFitted(ctx, long, stored.exists)
	require.NoError(t, err)
	assert.Len(t, got, MaxLength)
	assert.Equal(t, strings.Repeat("a", MaxLength-2)+"-1", got)

	stored[got] = true
	next, err := AssignFitted(ctx, long, stored.exists)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", MaxLength-2)+"-2", next)
}

func TestAssignFitted_ShortTitlesMatchAssign(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	taken := takenSet{"my-first-post": true, "my-first-post-1": true}

	fitted, err := AssignFitted(ctx, "My First Post", taken.exists)
	require.NoError(t, err)
	plain, err := Assign(ctx, "My First Post", taken.exists)
	require.NoError(t, err)
	assert.Equal(t, "my-first-post-2", fitted)
	assert.Equal(t, plain, fitted)
}

func TestAssignFitted_TrimsDanglingHyphen(t *testing.T) {
	t.Parallel()
	// The cut for "-1" lands right after a hyphen of the base.
	base := strings.Repeat("a", MaxLength-3) + "-bcd"
	taken := takenSet{Truncate(base): true}

	got, err := AssignFitted(context.Background(), base, taken.exists)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", MaxLength-3)+"-1", got)
	assert.LessOrEqual(t, len(got), MaxLength)
}
