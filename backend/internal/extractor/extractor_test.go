package extractor

import (
	"context"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_ChemistrySentence(t *testing.T) {
	e := New()
	triples := e.Extract("水的化学式是H2O。水在标准大气压下的沸点是100摄氏度。")

	require.NotEmpty(t, triples)
	assert.Contains(t, triples, Triple{Subject: "水的化学式", Relation: "是", Object: "H2O"})
	assert.Contains(t, triples, Triple{Subject: "水在标准大气压下的沸点", Relation: "是", Object: "100摄氏度"})
}

func TestExtract_EmptyInput(t *testing.T) {
	e := New()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   \n\t "))
	assert.Empty(t, e.Extract("。。！？"))
}

func TestExtract_PerPattern(t *testing.T) {
	tests := []struct {
		sentence string
		want     Triple
	}{
		{"机器学习是人工智能的分支", Triple{"机器学习", "是", "人工智能的分支"}},
		{"深度学习属于机器学习", Triple{"深度学习", "属于", "机器学习"}},
		{"细胞有细胞膜", Triple{"细胞", "有", "细胞膜"}},
		{"自然语言处理包括分词和句法分析", Triple{"自然语言处理", "包括", "分词和句法分析"}},
		{"一千克等于一千克水的质量", Triple{"一千克", "等于", "一千克水的质量"}},
		{"光速大于声速", Triple{"光速", "大于", "声速"}},
		{"月球质量小于地球质量", Triple{"月球质量", "小于", "地球质量"}},
		{"温室气体导致全球变暖", Triple{"温室气体", "导致", "全球变暖"}},
		{"燃烧产生二氧化碳", Triple{"燃烧", "产生", "二氧化碳"}},
		{"水分子由氢原子和氧原子组成", Triple{"水分子", "由...组成", "氢原子和氧原子"}},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.want.Relation, func(t *testing.T) {
			triples := e.Extract(tt.sentence)
			assert.Contains(t, triples, tt.want)
		})
	}
}

func TestExtract_MultiplePatternsOneSentence(t *testing.T) {
	e := New()
	// 是 and 包括 both match this sentence
	triples := e.Extract("操作系统是系统软件并且包括进程管理")

	relations := make(map[string]bool)
	for _, tr := range triples {
		relations[tr.Relation] = true
	}
	assert.True(t, relations["是"])
	assert.True(t, relations["包括"])
}

func TestExtract_MinimumSpanLength(t *testing.T) {
	e := New()
	// Single-rune subjects and objects are filtered out
	for _, tr := range e.Extract("天是蓝色的。水是冰。这是什么。机器学习是人工智能。") {
		assert.Greater(t, utf8.RuneCountInString(tr.Subject), 1, "subject too short: %q", tr.Subject)
		assert.Greater(t, utf8.RuneCountInString(tr.Object), 1, "object too short: %q", tr.Object)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := New()
	text := "神经网络属于深度学习。神经网络属于深度学习！深度学习导致算力需求增长。"

	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)

	// Duplicated sentences collapse to one triple, first-seen order kept
	count := 0
	for _, tr := range first {
		if tr.Subject == "神经网络" && tr.Relation == "属于" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestExtractWithLLM_ValidResponse(t *testing.T) {
	e := New()
	llm := &fakeCompleter{
		response: `这是提取结果：[{"subject":"傅里叶变换","relation":"是","object":"频域分析工具"}]`,
	}

	triples := e.ExtractWithLLM(context.Background(), llm, "任意文本内容")
	require.Len(t, triples, 1)
	assert.Equal(t, Triple{Subject: "傅里叶变换", Relation: "是", Object: "频域分析工具"}, triples[0])
}

func TestExtractWithLLM_InvalidJSONFallsBack(t *testing.T) {
	e := New()
	llm := &fakeCompleter{response: "对不起，我无法提取三元组"}

	triples := e.ExtractWithLLM(context.Background(), llm, "机器学习是人工智能的分支。")
	assert.Contains(t, triples, Triple{Subject: "机器学习", Relation: "是", Object: "人工智能的分支"})
}

func TestExtractWithLLM_MissingKeysFallsBack(t *testing.T) {
	e := New()
	llm := &fakeCompleter{response: `[{"subject":"甲","relation":"是"}]`}

	triples := e.ExtractWithLLM(context.Background(), llm, "机器学习是人工智能的分支。")
	assert.Contains(t, triples, Triple{Subject: "机器学习", Relation: "是", Object: "人工智能的分支"})
}

func TestExtractWithLLM_CallErrorFallsBack(t *testing.T) {
	e := New()
	llm := &fakeCompleter{err: fmt.Errorf("upstream unavailable")}

	triples := e.ExtractWithLLM(context.Background(), llm, "机器学习是人工智能的分支。")
	assert.Contains(t, triples, Triple{Subject: "机器学习", Relation: "是", Object: "人工智能的分支"})
}
