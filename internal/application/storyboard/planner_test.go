package storyboard

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func plannedJSON(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(
			`{"rhyme":"line %d","moral":"Wisdom","shot_type":"close_up","setting":"Bazaar at noon","key_objects":["tea"],"lighting_hint":"","description":"Aldar scene %d"}`,
			i+1, i+1))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func newTestPlanner(chain PlanChain) *Planner {
	return NewPlanner(chain, testProfile(), PlannerConfig{MinFrames: 5, MaxFrames: 9, DefaultFrames: 7})
}

func TestPlanner_FrameCount(t *testing.T) {
	p := newTestPlanner(nil)
	tests := []struct {
		in, want int
	}{
		{0, 7}, {-3, 7}, {1, 5}, {5, 5}, {8, 8}, {9, 9}, {40, 9},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, p.FrameCount(tt.in))
		})
	}
}

func TestPlanner_Plan(t *testing.T) {
	ctx := context.Background()

	t.Run("llm frames", func(t *testing.T) {
		chain := &fakeChain{content: "```json\n" + plannedJSON(6) + "\n```"}
		plan, err := newTestPlanner(chain).Plan(ctx, "Aldar visits the bazaar", 6)
		require.NoError(t, err)

		assert.Equal(t, PlanSourceLLM, plan.Source)
		require.Len(t, plan.Frames, 6)
		first := plan.Frames[0]
		assert.Equal(t, 1, first.Index)
		assert.Equal(t, entity.ShotCloseUp, first.ShotType)
		assert.Equal(t, "wisdom", first.Moral)
		assert.Equal(t, "warm daylight", first.LightingHint)

		require.Len(t, chain.inputs, 1)
		in := chain.inputs[0]
		assert.Equal(t, 6, in.FrameCount)
		assert.Equal(t, "Aldar Köse", in.CharacterName)
		assert.Contains(t, in.Appearance, "felt kalpak hat")
		assert.Equal(t, entity.Morals, in.Morals)
		assert.Contains(t, in.ShotTypes, "over-shoulder")
	})

	t.Run("wrapped frames are trimmed to request", func(t *testing.T) {
		chain := &fakeChain{content: `{"frames":` + plannedJSON(9) + `}`}
		plan, err := newTestPlanner(chain).Plan(ctx, "story", 5)
		require.NoError(t, err)
		assert.Equal(t, PlanSourceLLM, plan.Source)
		assert.Len(t, plan.Frames, 5)
	})

	t.Run("llm error falls back", func(t *testing.T) {
		plan, err := newTestPlanner(&fakeChain{err: errBackendDown}).Plan(ctx, "story", 7)
		require.NoError(t, err)
		assert.Equal(t, PlanSourceFallback, plan.Source)
		assert.Len(t, plan.Frames, 7)
	})

	t.Run("invalid json falls back", func(t *testing.T) {
		plan, err := newTestPlanner(&fakeChain{content: "I cannot do that"}).Plan(ctx, "story", 6)
		require.NoError(t, err)
		assert.Equal(t, PlanSourceFallback, plan.Source)
		assert.Len(t, plan.Frames, 6)
	})

	t.Run("too few frames falls back", func(t *testing.T) {
		plan, err := newTestPlanner(&fakeChain{content: plannedJSON(2)}).Plan(ctx, "story", 6)
		require.NoError(t, err)
		assert.Equal(t, PlanSourceFallback, plan.Source)
	})

	t.Run("no chain", func(t *testing.T) {
		plan, err := newTestPlanner(nil).Plan(ctx, "story", 0)
		require.NoError(t, err)
		assert.Equal(t, PlanSourceFallback, plan.Source)
		assert.Len(t, plan.Frames, 7)
	})

	t.Run("empty prompt", func(t *testing.T) {
		_, err := newTestPlanner(nil).Plan(ctx, "   ", 6)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
	})
}

func TestParsePlannedFrames(t *testing.T) {
	t.Run("drops frames without description", func(t *testing.T) {
		frames, err := ParsePlannedFrames(`[{"description":""},{"description":"kept","shot_type":"","lighting_hint":"moonlight"}]`, "warm")
		require.NoError(t, err)
		require.Len(t, frames, 1)
		assert.Equal(t, 1, frames[0].Index)
		assert.Equal(t, entity.ShotMedium, frames[0].ShotType)
		assert.Equal(t, "moonlight", frames[0].LightingHint)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, err := ParsePlannedFrames(`[]`, "warm")
		assert.Error(t, err)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := ParsePlannedFrames(`[{"description": }]`, "warm")
		assert.Error(t, err)
	})
}

func TestFallbackFrames(t *testing.T) {
	for n := 1; n <= 9; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			frames := FallbackFrames(n, "warm daylight")
			require.Len(t, frames, n)
			for i, f := range frames {
				assert.Equal(t, i+1, f.Index)
				assert.Equal(t, "warm daylight", f.LightingHint)
				assert.NotEmpty(t, f.Description)
			}
			assert.Equal(t, "Open steppe at dusk", frames[n-1].Setting)
		})
	}

	t.Run("capped", func(t *testing.T) {
		assert.Len(t, FallbackFrames(20, ""), len(fallbackTemplates))
	})

	t.Run("copies key objects", func(t *testing.T) {
		frames := FallbackFrames(5, "")
		frames[0].KeyObjects[0] = "changed"
		assert.Equal(t, "steppe", fallbackTemplates[0].KeyObjects[0])
	})
}
