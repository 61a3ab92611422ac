package document

import (
	"regexp"
	"strings"

	"github.com/fyerfyer/compliance-QA-system/internal/tokenizer"
)

const (
	// paragraphJoiner 段落之间的拼接符
	paragraphJoiner = "\n\n"
	// sentenceJoiner 句子之间的拼接符
	sentenceJoiner = " "
)

// unit 带偏移信息的文本单元（段落或句子）
type unit struct {
	text  string
	start int // 在规范化文本中的起始rune偏移
	end   int // 在规范化文本中的结束rune偏移
}

// Chunker 文档分块器
// 将规范化后的文本切分为Token受限、相邻重叠的分块序列
// Token计数和重叠尾部提取共用同一个编解码器，保证计数一致
type Chunker struct {
	config ChunkerConfig
	codec  tokenizer.Codec
}

// NewChunker 创建新的分块器
// 配置不合法时返回ConfigurationError
func NewChunker(codec tokenizer.Codec, config ChunkerConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Chunker{
		config: config,
		codec:  codec,
	}, nil
}

// Chunk 将文本分割为有序的分块序列
// meta会被复制进每个分块的元数据，并附加分块序号
func (c *Chunker) Chunk(text string, meta map[string]interface{}) ([]TextChunk, error) {
	normalized := normalizeText(text)
	if normalized == "" {
		return []TextChunk{}, nil
	}

	var chunks []TextChunk
	switch {
	case c.config.PreserveParagraphs:
		chunks, _ = c.chunkUnits(splitParagraphs(normalized), paragraphJoiner, "", true)
	case c.config.PreserveSentences:
		chunks, _ = c.chunkUnits(splitSentences(normalized, 0), sentenceJoiner, "", false)
	default:
		chunks = c.chunkByTokenWindows(normalized)
	}

	// 重新编号并附加元数据
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].Metadata = mergeChunkMetadata(meta, i)
		chunks[i].PageNumber = pageFromMetadata(meta)
	}

	return chunks, nil
}

// Close 释放分块器持有的编解码器资源
func (c *Chunker) Close() error {
	return c.codec.Close()
}

// chunkUnits 通用的累积/重叠分块逻辑
// 依次累积文本单元直到再加入下一个单元会超出MaxTokens，然后产出当前缓冲区，
// 并用已产出分块的重叠尾部作为下一个缓冲区的种子
// seed是上游传入的初始重叠种子；返回值中的string是末尾分块的重叠尾部，
// 供段落级调用在拼接句子级子分块后继续使用
func (c *Chunker) chunkUnits(units []unit, joiner string, seed string, sentenceFallback bool) ([]TextChunk, string) {
	var chunks []TextChunk

	bufText := ""
	bufStart, bufEnd := 0, 0
	pendingOverlap := seed

	appendUnit := func(u unit) {
		if bufText == "" {
			if pendingOverlap != "" {
				bufText = pendingOverlap + joiner + u.text
			} else {
				bufText = u.text
			}
			bufStart, bufEnd = u.start, u.end
			pendingOverlap = ""
		} else {
			bufText = bufText + joiner + u.text
			bufEnd = u.end
		}
	}

	emit := func() {
		if bufText == "" {
			return
		}
		chunks = append(chunks, TextChunk{
			Content:    bufText,
			StartChar:  bufStart,
			EndChar:    bufEnd,
			TokenCount: c.codec.Count(bufText),
		})
		pendingOverlap = c.overlapTail(bufText)
		bufText = ""
	}

	for _, u := range units {
		unitTokens := c.codec.Count(u.text)

		// 单个段落超过上限时，退化为句子粒度递归分块并拼接结果
		if unitTokens > c.config.MaxTokens && sentenceFallback && c.config.PreserveSentences {
			emit()
			sub, tail := c.chunkUnits(splitSentences(u.text, u.start), sentenceJoiner, pendingOverlap, false)
			chunks = append(chunks, sub...)
			pendingOverlap = tail
			continue
		}

		if bufText == "" {
			appendUnit(u)
			// 单个句子超过上限时允许溢出而不是从句中切断
			if unitTokens > c.config.MaxTokens {
				emit()
			}
			continue
		}

		candidate := bufText + joiner + u.text
		if c.codec.Count(candidate) > c.config.MaxTokens {
			// 小于最小分块的中间缓冲区向后合并而不是单独产出
			if c.codec.Count(bufText) >= c.config.MinChunkSize {
				emit()
				appendUnit(u)
			} else {
				appendUnit(u)
			}
			continue
		}

		appendUnit(u)
	}

	// 文档末尾的小分块仍然产出
	lastTail := pendingOverlap
	if bufText != "" {
		emit()
		lastTail = pendingOverlap
	}

	return chunks, lastTail
}

// chunkByTokenWindows 按原始Token窗口分块
// 窗口大小为MaxTokens，每次前进MaxTokens-OverlapTokens个Token
func (c *Chunker) chunkByTokenWindows(text string) []TextChunk {
	toks := c.codec.Encode(text)
	if len(toks) == 0 {
		return nil
	}

	step := c.config.MaxTokens - c.config.OverlapTokens
	var chunks []TextChunk

	for i := 0; i < len(toks); i += step {
		end := i + c.config.MaxTokens
		if end > len(toks) {
			end = len(toks)
		}

		content := c.codec.Decode(toks[i:end])
		start := len([]rune(c.codec.Decode(toks[:i])))

		chunks = append(chunks, TextChunk{
			Content:    content,
			StartChar:  start,
			EndChar:    start + len([]rune(content)),
			TokenCount: end - i,
		})

		if end == len(toks) {
			break
		}
	}

	return chunks
}

// overlapTail 提取分块末尾的重叠Token并解码回文本
func (c *Chunker) overlapTail(content string) string {
	if c.config.OverlapTokens <= 0 {
		return ""
	}

	toks := c.codec.Encode(content)
	if len(toks) <= c.config.OverlapTokens {
		return content
	}

	return strings.TrimSpace(c.codec.Decode(toks[len(toks)-c.config.OverlapTokens:]))
}

// multiNewline 匹配3个及以上的连续换行符
var multiNewline = regexp.MustCompile(`\n{3,}`)

// normalizeText 规范化文本
// 统一换行符、压缩过多的空行并去除首尾空白
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitParagraphs 按空行分割段落并记录偏移
func splitParagraphs(text string) []unit {
	var units []unit
	offset := 0

	for _, part := range strings.Split(text, paragraphJoiner) {
		partLen := len([]rune(part))
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			lead := partLen - len([]rune(strings.TrimLeft(part, " \t\n")))
			tlen := len([]rune(trimmed))
			units = append(units, unit{
				text:  trimmed,
				start: offset + lead,
				end:   offset + lead + tlen,
			})
		}
		offset += partLen + len([]rune(paragraphJoiner))
	}

	return units
}

// sentenceDelimiters 句子结束符，兼容中英文标点
var sentenceDelimiters = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '；': true,
}

// splitSentences 按句子分割文本并记录偏移
// base是该文本在规范化全文中的起始偏移
func splitSentences(text string, base int) []unit {
	var units []unit
	runes := []rune(text)
	start := 0

	flush := func(end int) {
		raw := string(runes[start:end])
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := len([]rune(raw)) - len([]rune(strings.TrimLeft(raw, " \t\n")))
			units = append(units, unit{
				text:  trimmed,
				start: base + start + lead,
				end:   base + start + lead + len([]rune(trimmed)),
			})
		}
		start = end
	}

	for i, r := range runes {
		if sentenceDelimiters[r] {
			flush(i + 1)
		}
	}
	// 处理最后一个可能没有结束符的句子
	flush(len(runes))

	return units
}

// mergeChunkMetadata 合并文档元数据和分块专属字段
func mergeChunkMetadata(base map[string]interface{}, index int) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+1)
	for k, v := range base {
		merged[k] = v
	}
	merged["chunk_index"] = index
	return merged
}

// pageFromMetadata 从元数据中提取页码（如果存在）
func pageFromMetadata(meta map[string]interface{}) int {
	if meta == nil {
		return 0
	}
	switch v := meta["page_number"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
