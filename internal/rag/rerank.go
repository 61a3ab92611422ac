package rag

import (
	"strings"

	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

// DefaultRerankBoost 每个关键词命中的相似度加成
// 经验值，可通过配置调整
const DefaultRerankBoost = 0.01

// 参与重排的最短关键词长度
const minKeywordLength = 4

// rerank 基于关键词命中对检索结果做启发式重排
// 问题中长于3个字符的词对块内容做大小写不敏感的子串匹配，
// 每命中一个关键词相似度加boost，上限1.0，然后重新排序
func rerank(question string, results []vectordb.SearchResult, boost float32) []vectordb.SearchResult {
	if len(results) == 0 || boost <= 0 {
		return results
	}

	keywords := extractKeywords(question)
	if len(keywords) == 0 {
		return results
	}

	reranked := make([]vectordb.SearchResult, len(results))
	copy(reranked, results)

	for i := range reranked {
		content := strings.ToLower(reranked[i].Content)
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				reranked[i].Similarity += boost
			}
		}
		if reranked[i].Similarity > 1.0 {
			reranked[i].Similarity = 1.0
		}
	}

	sortBySimilarity(reranked)
	return reranked
}

// extractKeywords 提取问题中参与匹配的关键词
func extractKeywords(question string) []string {
	words := strings.Fields(strings.ToLower(question))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, ".,;:?!\"'()")
		if len(word) >= minKeywordLength {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// sortBySimilarity 按相似度降序稳定排序
func sortBySimilarity(results []vectordb.SearchResult) {
	for i := 1; i < len(results); i++ {
		current := results[i]
		j := i - 1
		for j >= 0 && results[j].Similarity < current.Similarity {
			results[j+1] = results[j]
			j--
		}
		results[j+1] = current
	}
}
