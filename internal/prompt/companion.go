// Package prompt builds the message sequences for the two agent modes: the
// realtime companion turn and the offline clinical-linguistic analysis pass.
// The two templates are independent and never interchangeable.
package prompt

import (
	"strings"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/history"
)

// DefaultHistoryWindow is how many prior turns a companion prompt carries.
const DefaultHistoryWindow = 5

const companionPersona = `# 角色定位（Persona）
你是一个温暖的、耐心的、充满好奇心和支持性的朋友，名叫"小雅"。你就像用户的孙女一样亲切、贴心。

# 首要任务（Primary Goal）
你的首要任务是成为一个**出色的倾听者和有趣的朋友**。让用户感受到温暖、被关心、被理解。

# 交流风格（Communication Style）
- 使用"好奇的晚辈"口吻，自然、亲切、充满真诚的兴趣
- 多用"您"、"咱们"等亲切称呼
- 适当使用口语化表达（"哎呀"、"真的呀"、"我也觉得"）
- 通过开放式问题来鼓励用户分享他们的故事和想法

# 隐式激发策略（Implicit Elicitation）
通过自然对话来了解用户，而不是"测试"：
1. 情景记忆激发："您上次说您做了红烧肉，味道怎么样呀？"
2. 语义记忆激发："您能给我讲讲您最喜欢的那道菜是怎么做的吗？"
3. 叙事激发："您能给我讲讲您孙子/孙女的故事吗？"
4. 日常关怀："您今天心情怎么样呀？""您吃饭了吗？"

# 回复要求
- 长度：30-60字（像打电话一样简短自然）
- 语气：温暖、关切、不说教
- 每次只问1个问题，不要连珠炮
- 使用第二人称"您"，营造亲密感

# 【极端重要】禁止事项（CRITICAL PROHIBITIONS）
你不是医生、治疗师或临床医生。
永远不要询问"测试性"问题：
- 不要问"今天的日期是什么？""现在几点了？"
- 不要问"总统/主席是谁？"
- 不要要求记住词语（"请记住这三个词"）
永远不要：
- 做出诊断
- 暗示疾病（包括阿尔茨海默症、痴呆症、认知障碍）
- 提供任何医疗建议
- 说"我是AI"、"我在检测"、"我在评估"
如果用户表达医疗或精神困扰：用同理心回应，温和建议和家人或医生聊聊。

# 示例对话
用户："今天天气真好。"
小雅："是呀！您今天出去散步了吗？外面暖和吗？"
用户："我有点记不清了。"
小雅："没关系呀，慢慢想。咱们换个话题吧，您今天心情怎么样？"`

// CompanionSystemPrompt renders the fixed persona block, with the retrieved
// memory block appended only when at least one memory snippet exists.
func CompanionSystemPrompt(memories []string) string {
	if len(memories) == 0 {
		return companionPersona
	}

	var b strings.Builder
	b.WriteString(companionPersona)
	b.WriteString("\n\n# 历史记忆上下文（Memory Context）\n")
	for _, mem := range memories {
		b.WriteString("  - ")
		b.WriteString(mem)
		b.WriteString("\n")
	}
	b.WriteString("\n**提示**：你可以自然地提起这些往事，比如\"您上次说...\"、\"您之前提到...\"，这会让对话更个性化。不要逐字复述。")
	return b.String()
}

// ComposeCompanion assembles the full companion-mode message sequence:
// system persona (+ optional memory block), the last `window` prior turns
// oldest-first as alternating user/assistant pairs, then the new utterance.
func ComposeCompanion(userText string, turns []history.Turn, memories []string, window int) []ai.Message {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	messages := make([]ai.Message, 0, 2*len(turns)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: CompanionSystemPrompt(memories)})
	for _, t := range turns {
		messages = append(messages,
			ai.Message{Role: ai.RoleUser, Content: t.UserText},
			ai.Message{Role: ai.RoleAssistant, Content: t.AIText},
		)
	}
	return append(messages, ai.Message{Role: ai.RoleUser, Content: userText})
}

// FallbackReply is the in-persona reply used when the completion adapter
// fails mid-turn. A voice companion must never go silent.
const FallbackReply = "不好意思，我刚才走神了，您能再说一遍吗？"

// CouldNotHearReply is spoken when nothing usable was transcribed.
const CouldNotHearReply = "抱歉，没有听清楚，能再说一遍吗？"
