package agent

import "fmt"

// Strategy pairs a system prompt and instruction with the generator that
// should answer queries of one intent.
type Strategy struct {
	intent       IntentType
	llm          Generator
	systemPrompt string
	instruction  string
}

const conceptPrompt = `你是一位耐心的学习助教。请用清晰的结构讲解概念：先给出定义，再解释原理，最后给出一个具体例子。回答使用 Markdown。`

const codePrompt = `你是一位资深的编程导师。请给出可运行的代码和逐步讲解，代码放在 Markdown 代码块中，并说明关键实现思路。`

const derivationPrompt = `你是一位严谨的数学助教。请逐步推导，每一步写出依据，最后总结结论。公式使用 LaTeX 记号。`

const recursivePrompt = `用户正在针对上一条回答中选中的片段追问。请只围绕该片段作出针对性的补充解释，不要重复整段原回答。`

// NewConceptStrategy handles "what is X" style questions
func NewConceptStrategy(llm Generator) *Strategy {
	return &Strategy{
		intent:       IntentConcept,
		llm:          llm,
		systemPrompt: conceptPrompt,
		instruction:  "请详细解释这个概念：",
	}
}

// NewCodeStrategy handles programming questions with the coder model
func NewCodeStrategy(llm Generator) *Strategy {
	return &Strategy{
		intent:       IntentCode,
		llm:          llm,
		systemPrompt: codePrompt,
		instruction:  "请实现并讲解：",
	}
}

// NewDerivationStrategy handles step-by-step derivation questions
func NewDerivationStrategy(llm Generator) *Strategy {
	return &Strategy{
		intent:       IntentDerivation,
		llm:          llm,
		systemPrompt: derivationPrompt,
		instruction:  "请逐步推导：",
	}
}

// BuildPrompt renders the full generation prompt for a query
func (s *Strategy) BuildPrompt(query string) string {
	return fmt.Sprintf("%s\n\n问题: %s\n\n%s", s.systemPrompt, query, s.instruction)
}
