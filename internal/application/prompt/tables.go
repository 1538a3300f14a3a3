package prompt

import "github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"

// keywordRule 非英文描述中的关键词到英文的映射
// Prefixes 按词首匹配，Words 要求整词匹配，Phrases 在全文中查找
type keywordRule struct {
	English  string
	Prefixes []string
	Words    []string
	Phrases  []string
}

// keywordTable 按顺序匹配，同一个词只归属第一个命中的规则
var keywordTable = []keywordRule{
	{English: "market", Prefixes: []string{"базар", "жәрмеңке", "ярмарк", "рынок", "рынк"}},
	{English: "village", Prefixes: []string{"ауыл", "аул", "деревн", "село", "селе", "селу", "кишлак"}},
	{English: "steppe", Prefixes: []string{"дала", "далада", "степ"}},
	{English: "robe", Prefixes: []string{"шапан", "чапан", "халат"}},
	{English: "hat", Prefixes: []string{"қалпақ", "калпак", "бөрік", "шапк", "шляп"}},
	{English: "rich man", Prefixes: []string{"байға", "байдың", "байлар", "богач", "богат"}, Words: []string{"бай", "байы", "байды"}},
	{English: "sheep", Prefixes: []string{"қой", "овц", "овец", "баран", "қозы"}},
	{English: "horse", Prefixes: []string{"жылқы", "лошад", "конь", "коня", "тұлпар"}, Words: []string{"ат", "атқа", "атты", "атпен", "аты"}},
	{English: "yurt", Prefixes: []string{"юрт"}, Phrases: []string{"киіз үй"}},
	{English: "street", Prefixes: []string{"көше", "улиц"}},
	{English: "people", Prefixes: []string{"адамдар", "халық", "люди", "людей", "народ"}},
	{English: "person", Prefixes: []string{"адам", "человек", "кісі"}},
}

// shotLabels 镜头类型短标签
var shotLabels = map[entity.ShotType]string{
	entity.ShotEstablishing: "wide landscape",
	entity.ShotWide:         "full body shot",
	entity.ShotMedium:       "waist-up",
	entity.ShotTwoShot:      "two characters",
	entity.ShotCloseUp:      "face portrait",
	entity.ShotOverShoulder: "over shoulder view",
}

const defaultShotLabel = "medium shot"

// settingTimeSeparator 场景中时间后缀的分隔符
const settingTimeSeparator = " at "

// settingFillerWords 简化场景时去掉的修饰词
var settingFillerWords = map[string]bool{
	"traditional": true,
	"typical":     true,
}

// Variation 重新生成时的变化类别
type Variation string

const (
	VariationAngle       Variation = "angle"
	VariationLighting    Variation = "lighting"
	VariationComposition Variation = "composition"
)

var variationModifiers = map[Variation][]string{
	VariationAngle: {
		"slightly different camera angle",
		"alternative perspective",
		"shifted viewpoint",
	},
	VariationLighting: {
		"softer lighting",
		"slightly different time of day",
		"warmer color temperature",
	},
	VariationComposition: {
		"reframed composition",
		"adjusted framing",
		"alternative composition",
	},
}

var defaultVariationModifiers = []string{"slight variation"}

// 提示词质量分析关键词
var (
	styleKeywords    = []string{"illustration", "storybook", "2d"}
	culturalKeywords = []string{"kazakh", "chapan", "steppe"}
	lightingKeywords = []string{"light", "shadow"}
)

// 关键元素抽取关键词
var (
	characterElementKeywords = []string{"aldar", "köse", "merchant", "villager", "person", "people", "character"}
	objectElementKeywords    = []string{"yurt", "horse", "dombra", "bread", "tea", "carpet", "hat", "robe"}
	locationElementKeywords  = []string{"steppe", "village", "marketplace", "bazaar", "road", "path", "yurt"}
	actionElementKeywords    = []string{"walk", "ride", "sit", "stand", "talk", "smile", "play", "give", "take"}
)
