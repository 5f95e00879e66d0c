package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// LiteratureDoc 是文献库中的一篇文档（论文摘要或指南条目）。
type LiteratureDoc struct {
	Title     string   `bson:"title" json:"title"`
	Abstract  string   `bson:"abstract" json:"abstract"`
	Source    string   `bson:"source" json:"source"` // 期刊或指南机构
	Year      int      `bson:"year" json:"year"`
	Keywords  []string `bson:"keywords" json:"keywords"`
	Citations []string `bson:"citations,omitempty" json:"citations,omitempty"`
}

// MongoLiteratureSource 从 MongoDB 文献集合中检索论文摘要与指南。
type MongoLiteratureSource struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoLiteratureSource 创建文献来源。
func NewMongoLiteratureSource(coll *mongo.Collection, logger *zap.Logger) *MongoLiteratureSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoLiteratureSource{
		coll:   coll,
		logger: logger.With(zap.String("component", "literature_source")),
	}
}

// Retrieve 实现 retrieval.SourceClient。
// 命中按年份倒序，较新的文献优先。
func (s *MongoLiteratureSource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	filter := literatureFilter(question)
	if filter == nil {
		return &types.RawSourceResult{}, nil
	}

	opts := options.Find().
		SetLimit(int64(topK)).
		SetSort(bson.D{{Key: "year", Value: -1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("literature query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []LiteratureDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("literature cursor failed: %w", err)
	}

	result := &types.RawSourceResult{RetrievalCount: len(docs)}
	for _, d := range docs {
		result.Context = append(result.Context, fmt.Sprintf("%s (%s, %d): %s", d.Title, d.Source, d.Year, d.Abstract))
	}
	if len(docs) > 0 {
		result.Answer = docs[0].Abstract
	}

	s.logger.Debug("literature retrieval",
		zap.String("mode", mode),
		zap.Int("hits", len(docs)))
	return result, nil
}

// literatureFilter 把问题词编译成对 title/abstract/keywords 的
// 大小写不敏感正则过滤器；没有可用查询词时返回 nil。
func literatureFilter(question string) bson.M {
	words := queryWords(question)
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	pattern := strings.Join(quoted, "|")

	return bson.M{"$or": []bson.M{
		{"title": bson.M{"$regex": pattern, "$options": "i"}},
		{"abstract": bson.M{"$regex": pattern, "$options": "i"}},
		{"keywords": bson.M{"$regex": pattern, "$options": "i"}},
	}}
}
