package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ChatTemplate(t *testing.T) {
	r := NewRegistry()

	t.Run("storyboard plan renders", func(t *testing.T) {
		tpl, err := r.ChatTemplate(PromptStoryboardPlanV1)
		require.NoError(t, err)

		msgs, err := tpl.Format(context.Background(), map[string]any{
			"character_name": "Aldar Köse",
			"frame_count":    7,
			"morals":         "kindness, wisdom",
			"shot_types":     "wide, medium",
			"lighting_hint":  "warm daylight",
			"appearance":     "felt kalpak hat",
			"prompt":         "Aldar tricks a greedy merchant",
		})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, schema.System, msgs[0].Role)
		assert.Contains(t, msgs[0].Content, "exactly 7 frames")
		assert.Contains(t, msgs[0].Content, `"warm daylight"`)
		assert.Equal(t, schema.User, msgs[1].Role)
		assert.Contains(t, msgs[1].Content, "greedy merchant")
	})

	t.Run("cached", func(t *testing.T) {
		a, err := r.ChatTemplate(PromptStoryboardPlanV1)
		require.NoError(t, err)
		b, err := r.ChatTemplate(PromptStoryboardPlanV1)
		require.NoError(t, err)
		assert.True(t, a == b)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := r.ChatTemplate(PromptID("nope"))
		assert.Error(t, err)
	})
}
