package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepstudy/backend/pkg/errors"
	"go.uber.org/zap"
)

// Completer is the minimal generation surface the LLM-assisted path needs.
// The adapter package satisfies it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const llmExtractionPrompt = `请从以下文本中提取知识图谱三元组，格式为JSON数组：

文本：%s

请提取其中的主谓宾结构，格式为：
[{"subject": "主语", "relation": "关系", "object": "宾语"}]

只返回JSON数组，不要包含其他内容。`

// ExtractWithLLM prompts a generation backend for a JSON array of triples.
// On any call, parse or validation failure it falls back to the rule-based
// path, so the caller always gets a usable (possibly empty) result.
func (e *Extractor) ExtractWithLLM(ctx context.Context, llm Completer, text string) []Triple {
	if strings.TrimSpace(text) == "" {
		return []Triple{}
	}

	raw, err := llm.Complete(ctx, fmt.Sprintf(llmExtractionPrompt, text))
	if err != nil {
		e.logger.Warn("LLM extraction call failed, falling back to rules", zap.Error(err))
		return e.Extract(text)
	}

	triples, err := parseTripleJSON(raw)
	if err != nil {
		e.logger.Warn("LLM extraction output invalid, falling back to rules",
			zap.Error(errors.NewExtractionInvalid(raw, err)),
		)
		return e.Extract(text)
	}

	return dedupe(triples)
}

// parseTripleJSON pulls the first JSON array out of a model response and
// validates that every element carries all three required keys.
func parseTripleJSON(raw string) ([]Triple, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var items []map[string]string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("unmarshal triples: %w", err)
	}

	triples := make([]Triple, 0, len(items))
	for i, item := range items {
		subject, sok := item["subject"]
		relation, rok := item["relation"]
		object, ook := item["object"]
		if !sok || !rok || !ook || subject == "" || relation == "" || object == "" {
			return nil, fmt.Errorf("element %d missing required keys", i)
		}
		triples = append(triples, Triple{Subject: subject, Relation: relation, Object: object})
	}
	return triples, nil
}
