package prompts

import "fmt"

// ============================================================================
// Analysis Prompts (Vision Language Model)
// ============================================================================

// DefaultAnalysisPrompt asks the model for the structured meme metadata
// consumed by indexing and retrieval.
// 要求模型输出 JSON：emotion(所代表情绪)、usage_scene(使用场景)、design_inspiration(设计灵感)
const DefaultAnalysisPrompt = `请分析这个表情包并返回JSON，包含字段：emotion(所代表情绪)、usage_scene(使用场景)、design_inspiration(设计灵感)。字段值用中文，可以是字符串或字符串数组。只输出JSON，不要附加解释或Markdown。`

// DefaultInstructPrompt asks the model for a free-text generation strategy
// instead of structured metadata.
// 生成策略提示词：输出纯文本策略，供后续按此策略设计表情包
const DefaultInstructPrompt = `请根据此图片和用户的需求给出一个表情包的生成策略，纯文本，以便后续以此策略去设计表情包，包含：所代表情绪、使用场景、设计灵感。`

// ExtraTextPrefix labels the user's free-text requirement when it is appended
// to an analysis request.
const ExtraTextPrefix = "用户需求: "

// ============================================================================
// Generation Prompts (Image Generator)
// ============================================================================

// ReferencePrompt builds the two-image generation prompt. The first image is
// the matched catalog meme used as a style reference, the second is the
// user's own image.
// 双图模式：第一张为参考图，第二张为用户主体图
func ReferencePrompt(inspiration string) string {
	return fmt.Sprintf("参考第一张图的设计灵感：%s。以第二张图中的主体为核心，按同样的风格和表现手法生成一个新的表情包。", inspiration)
}

// InspirationPrompt builds the single-image generation prompt that reworks
// the user's image according to the matched meme's design inspiration.
// 单图模式：仅用户图，按匹配表情包的设计灵感改绘
func InspirationPrompt(inspiration string) string {
	return fmt.Sprintf("根据以下设计灵感生成一个表情包：%s。以图中的主体为基础，突出情绪表达。", inspiration)
}
