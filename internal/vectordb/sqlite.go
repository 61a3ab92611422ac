package vectordb

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
)

// vectorRow 向量记录的数据库行模型
// 向量和元数据以JSON形式序列化存储
type vectorRow struct {
	ID        string         `gorm:"primaryKey;size:128"` // 记录ID，主键
	Content   string         `gorm:"type:text;not null"`  // 文本内容
	Metadata  datatypes.JSON `gorm:"type:json"`           // 元数据
	Embedding datatypes.JSON `gorm:"type:json;not null"`  // 向量表示
	CreatedAt time.Time      `gorm:"not null"`            // 创建时间
}

// TableName 明确指定表名
func (vectorRow) TableName() string {
	return "vector_records"
}

// SQLStore 基于关系库的向量存储实现
// 记录持久化在数据库中，检索时加载并做精确余弦计算
type SQLStore struct {
	db        *gorm.DB
	dimension int
}

// NewSQLStore 基于已建立的gorm连接创建向量存储
func NewSQLStore(db *gorm.DB, dimension int) (*SQLStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	if err := db.AutoMigrate(&vectorRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate vector records: %w", err)
	}

	return &SQLStore{
		db:        db,
		dimension: dimension,
	}, nil
}

// Add 批量写入记录
// 按ID幂等插入：冲突时覆盖旧记录
func (s *SQLStore) Add(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]vectorRow, 0, len(records))
	for i := range records {
		record := records[i]
		if err := ValidateVector(record.Embedding, s.dimension); err != nil {
			return fmt.Errorf("invalid vector for record %s: %w", record.ID, err)
		}

		metaJSON, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for record %s: %w", record.ID, err)
		}
		embJSON, err := json.Marshal(record.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for record %s: %w", record.ID, err)
		}

		createdAt := record.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		rows = append(rows, vectorRow{
			ID:        record.ID,
			Content:   record.Content,
			Metadata:  datatypes.JSON(metaJSON),
			Embedding: datatypes.JSON(embJSON),
			CreatedAt: createdAt,
		})
	}

	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

// Search 加载全部记录并做精确余弦检索
// 无法解码的行跳过而不是中断
func (s *SQLStore) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, s.dimension); err != nil {
		return nil, err
	}

	var rows []vectorRow
	if err := s.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load vector records: %w", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		var emb []float32
		if err := json.Unmarshal(row.Embedding, &emb); err != nil {
			continue
		}
		if len(emb) != s.dimension {
			continue
		}

		var meta map[string]interface{}
		if len(row.Metadata) > 0 {
			// 元数据损坏不影响相似度计算
			_ = json.Unmarshal(row.Metadata, &meta)
		}
		if !matchMetadata(meta, filter.Metadata) {
			continue
		}

		similarity, err := embedding.CosineSimilarity(vector, emb)
		if err != nil {
			continue
		}

		results = append(results, SearchResult{
			ID:         row.ID,
			Content:    row.Content,
			Metadata:   meta,
			Similarity: similarity,
		})
	}

	return applyFilter(results, filter), nil
}

// Count 获取记录总数
func (s *SQLStore) Count() (int, error) {
	var count int64
	if err := s.db.Model(&vectorRow{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Reset 删除所有记录
func (s *SQLStore) Reset() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&vectorRow{}).Error
}

// Dimensions 返回向量维度
func (s *SQLStore) Dimensions() int {
	return s.dimension
}

// Close 关闭存储
// 连接的生命周期由上层数据库模块管理
func (s *SQLStore) Close() error {
	return nil
}
