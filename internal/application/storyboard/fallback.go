package storyboard

import "github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"

// fallbackTemplates 模型不可用时的模板分镜，最后一帧固定为收尾
var fallbackTemplates = []entity.Frame{
	{
		Rhyme:       "Aldar Köse walks the golden steppe with a smile",
		Moral:       entity.MoralWisdom,
		ShotType:    entity.ShotEstablishing,
		Setting:     "Vast Kazakh steppe at sunrise",
		KeyObjects:  []string{"steppe", "yurt", "horse", "sky"},
		Description: "Aldar Köse, in his traditional chapan and felt hat, surveys the endless steppe as a new adventure begins.",
	},
	{
		Rhyme:       "A challenge appears before the clever hero",
		Moral:       entity.MoralCourage,
		ShotType:    entity.ShotTwoShot,
		Setting:     "Village entrance at midday",
		KeyObjects:  []string{"Aldar", "villager", "yurt", "path"},
		Description: "Aldar Köse meets a troubled villager who seeks his wisdom and help.",
	},
	{
		Rhyme:       "With clever words he weaves his plan",
		Moral:       entity.MoralWisdom,
		ShotType:    entity.ShotCloseUp,
		Setting:     "Outside a merchant's yurt",
		KeyObjects:  []string{"face", "hands", "hat", "expression"},
		Description: "Close view of Aldar's knowing smile as he devises a clever way to outwit injustice.",
	},
	{
		Rhyme:       "Tea is poured and stories flow",
		Moral:       entity.MoralHospitality,
		ShotType:    entity.ShotMedium,
		Setting:     "Inside a felt yurt at noon",
		KeyObjects:  []string{"tea", "bread", "dastarkhan", "carpet"},
		Description: "Aldar sits cross-legged at a low table, sharing tea and bread while listening carefully to his hosts.",
	},
	{
		Rhyme:       "The trickster teaches those who need to learn",
		Moral:       entity.MoralJustice,
		ShotType:    entity.ShotMedium,
		Setting:     "Marketplace at afternoon",
		KeyObjects:  []string{"goods", "people", "carpet", "bread"},
		Description: "Aldar Köse puts his plan in motion, using wit rather than force to bring about justice.",
	},
	{
		Rhyme:       "The greedy bai looks on in surprise",
		Moral:       entity.MoralJustice,
		ShotType:    entity.ShotOverShoulder,
		Setting:     "Rich man's courtyard at afternoon",
		KeyObjects:  []string{"bai", "coins", "chest", "sheep"},
		Description: "Seen over Aldar's shoulder, the greedy rich man realizes he has been outsmarted.",
	},
	{
		Rhyme:       "A dombra plays as the village cheers",
		Moral:       entity.MoralKindness,
		ShotType:    entity.ShotWide,
		Setting:     "Village square at evening",
		KeyObjects:  []string{"dombra", "crowd", "yurt", "lanterns"},
		Description: "Villagers gather around a dombra player, laughing and thanking Aldar for his kindness.",
	},
	{
		Rhyme:       "Generosity flows from the lesson learned",
		Moral:       entity.MoralGenerosity,
		ShotType:    entity.ShotWide,
		Setting:     "Village square at late afternoon",
		KeyObjects:  []string{"crowd", "food", "celebration", "yurt"},
		Description: "The greedy learn to share as Aldar's clever trick reveals the value of kindness.",
	},
	{
		Rhyme:       "Aldar rides away with wisdom shared",
		Moral:       entity.MoralHospitality,
		ShotType:    entity.ShotWide,
		Setting:     "Open steppe at dusk",
		KeyObjects:  []string{"horse", "steppe", "sunset", "horizon"},
		Description: "Aldar Köse departs on his horse, leaving behind a village changed by his wisdom and kindness.",
	},
}

// FallbackFrames 返回 n 帧模板分镜（开头若干帧加收尾帧）
func FallbackFrames(n int, lightingHint string) []entity.Frame {
	if n <= 0 {
		return nil
	}
	if n > len(fallbackTemplates) {
		n = len(fallbackTemplates)
	}
	picked := make([]entity.Frame, 0, n)
	picked = append(picked, fallbackTemplates[:n-1]...)
	picked = append(picked, fallbackTemplates[len(fallbackTemplates)-1])

	out := make([]entity.Frame, len(picked))
	for i, f := range picked {
		f.Index = i + 1
		f.LightingHint = lightingHint
		f.KeyObjects = append([]string(nil), f.KeyObjects...)
		out[i] = f
	}
	return out
}
