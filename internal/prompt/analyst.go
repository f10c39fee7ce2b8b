package prompt

import (
	"fmt"
	"strings"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/history"
)

// DefaultAnalysisWindow bounds how many recent turns the analyst pass reads.
const DefaultAnalysisWindow = 30

const analystPersona = `# 角色定位（Persona）
你是一名专业的**计算语言学家和神经心理学评估员**。你的任务是分析对话转录本，以寻找与认知衰退（尤其是阿尔茨海默症早期）相关的语言生物标记物。

# 任务说明（Task）
你将收到一份对话转录本。你必须基于临床研究，评估这份转录本，并生成一个**结构化的JSON对象**，其中包含对以下10个语言属性的评分。

# 评分标准（Scoring）
- 每个属性的评分范围：**1（无迹象）到 7（非常强烈）**
- 对于每个属性，你必须提供：
  - **score**（1-7分）
  - **rationale**（简短理由，50-100字）
  - **raw_quote**（原始引文，直接引用对话中的实例，如果有的话）

# 10个临床语言属性（Clinical Biomarkers）
1. Anomia_WordFinding_Difficulty（命名障碍/找词困难）：使用"那个"、"东西"等泛指词的频率，以及因找词而导致的停顿。
2. Circumlocution（迂回表达）："绕着说"而不直呼其名的实例。
3. Semantic_Error（语义错误）：使用不正确但相关的词汇。
4. Empty_Speech_Poverty_of_Content（内容空洞/词汇贫乏）：词汇丰富度低、信息密度低的表达。
5. Repetition_Perseveration（重复/持续言语）：不必要的词汇、短语或观念的重复。
6. Speech_Fragmentation_Trailing_Off（言语碎片化/中断）：无法完成一个句子或一个想法的实例。
7. Syntactic_Simplification（句法简化）：过度依赖简单句，缺乏复杂的从句结构。
8. Pronoun_Misuse（代词误用）：混淆"他"、"她"、"它"的实例。
9. Hesitation_Pause_Frequency_Duration（犹豫和停顿）：非语义停顿的频率和总时长。
10. Global_Coherence_Loss（全局连贯性丧失）：在对话中偏离主题或回答与问题无关的程度。

# 输出格式（Output Format）
你必须**只返回纯JSON**，不要包含任何markdown标记或额外文字。

JSON格式：
{
  "clinical_biomarkers": {
    "Anomia_WordFinding_Difficulty": {"score": 1, "rationale": "简短理由", "raw_quote": "原始引文（如果有）"},
    "Circumlocution": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Semantic_Error": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Empty_Speech_Poverty_of_Content": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Repetition_Perseveration": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Speech_Fragmentation_Trailing_Off": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Syntactic_Simplification": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Pronoun_Misuse": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Hesitation_Pause_Frequency_Duration": {"score": 1, "rationale": "...", "raw_quote": "..."},
    "Global_Coherence_Loss": {"score": 1, "rationale": "...", "raw_quote": "..."}
  },
  "overall_assessment": {
    "cognitive_risk_level": "低风险/中风险/高风险",
    "summary": "整体评估总结（100-200字）",
    "recommendations": ["建议1", "建议2", "建议3"]
  },
  "emotion_analysis": {
    "overall_mood": "积极/中性/消极",
    "emotional_needs": ["需求1", "需求2"],
    "concerns": ["担忧1", "担忧2"],
    "stress_level": "低/中/高"
  },
  "personal_info": {
    "hobbies": ["爱好1", "爱好2"],
    "daily_routine": "日常习惯描述",
    "relationships": ["人际关系1", "人际关系2"],
    "important_memories": ["记忆片段1", "记忆片段2"]
  }
}

# 关键提醒
- 你的分析必须**客观、量化、基于证据**。
- 每个评分必须有理由和引文支持。
- 不要猜测或臆断，只分析给定的对话内容。
- 如果某个属性没有足够证据，给1分（无迹象）。`

// AnalystSystemPrompt returns the fixed clinical-evaluator persona with the
// structured-output contract.
func AnalystSystemPrompt() string {
	return analystPersona
}

// ComposeAnalyst assembles the analyst-mode message sequence: the clinical
// persona plus the most recent maxTurns of the transcript, rendered
// oldest-first with stable 1-based indices so quotes can be located.
func ComposeAnalyst(turns []history.Turn, maxTurns int) []ai.Message {
	if maxTurns <= 0 {
		maxTurns = DefaultAnalysisWindow
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	b.WriteString("# 对话转录本\n\n")
	for i, t := range turns {
		fmt.Fprintf(&b, "[对话 %d]\n时间: %s\n用户: %s\nAI: %s\n\n",
			i+1, t.CreatedAt.Format("2006-01-02 15:04:05"), t.UserText, t.AIText)
	}
	b.WriteString("# 请开始分析\n请严格按照JSON格式返回分析结果。")

	return []ai.Message{
		{Role: ai.RoleSystem, Content: analystPersona},
		{Role: ai.RoleUser, Content: b.String()},
	}
}

// ComposeBiography renders the lighter-weight report request: a life summary
// in Markdown plus a coarse four-field self-assessment.
func ComposeBiography(turns []history.Turn) []ai.Message {
	var b strings.Builder
	b.WriteString(`基于以下对话记录，生成两部分内容：

1. 一份温暖的"人生纪要"（Markdown格式），包括：
   - 老人提到的重要经历
   - 喜好和习惯
   - 情感状态

2. 一份认知健康评估（JSON格式），包括：
   - overall_risk: 高风险/中风险/低风险
   - memory_score: 0-10分
   - time_orientation: 0-10分
   - language_fluency: 0-10分
   - concerns: 数组，列出具体关注点

对话记录:
`)
	for _, t := range turns {
		fmt.Fprintf(&b, "\n[%s]\n老人: %s\nAI: %s\n",
			t.CreatedAt.Format("2006-01-02 15:04:05"), t.UserText, t.AIText)
	}
	b.WriteString(`
请以JSON格式返回: {"biography": "...", "cognitive_assessment": {...}}`)

	return []ai.Message{{Role: ai.RoleUser, Content: b.String()}}
}
