package embedding

import (
	"math"
	"sort"
)

// CosineSimilarity 计算两个向量的余弦相似度
// 维度不一致时返回DimensionMismatchError；
// 任一向量为零向量时返回0，不会出现除零
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// 处理浮点精度越界
	if similarity > 1.0 {
		similarity = 1.0
	} else if similarity < -1.0 {
		similarity = -1.0
	}

	return float32(similarity), nil
}

// Scored 带相似度的候选向量
type Scored struct {
	Index      int     // 候选向量在输入中的下标
	Similarity float32 // 与查询向量的余弦相似度
}

// FindMostSimilar 在候选向量中找出与查询向量最相似的topK个
// 按相似度降序排序，相似度相同时保持输入顺序
func FindMostSimilar(query []float32, candidates [][]float32, topK int) ([]Scored, error) {
	scored := make([]Scored, 0, len(candidates))

	for i, candidate := range candidates {
		similarity, err := CosineSimilarity(query, candidate)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{Index: i, Similarity: similarity})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	return scored, nil
}
