package search

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/embeddings"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/textutil"
)

// stopwords is the fixed list dropped during query tokenization
// (spec.md §4.2 step 1).
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "for": true, "is": true, "on": true, "with": true,
}

var nonWord = regexp.MustCompile(`\W+`)

// tokenizeQuery splits Q on non-word characters, lowercases, and
// drops tokens of length ≤2 and stopwords.
func tokenizeQuery(q string) []string {
	var out []string
	for _, tok := range nonWord.Split(strings.ToLower(q), -1) {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

const (
	candidateOverfetch = 3 // stage 1 returns limit * 3 candidates
	defaultPerTypeCap  = 3
)

// Query is a semantic search request (POST /api/search/semantic).
type Query struct {
	Text        string
	EntityTypes []domain.EntityType
	MaxResults  int
}

// Result is the {servers[], tools[], agents[]} response shape of
// spec.md §4.2.
type Result struct {
	Servers []Hit `json:"servers"`
	Agents  []Hit `json:"agents"`
	Tools   []Hit `json:"tools"`
}

// Hit is one scored, deduplicated-by-path search result.
type Hit struct {
	Path       string         `json:"path"`
	Score      float64        `json:"relevance_score"`
	Metadata   map[string]any `json:"metadata"`
	ParentPath string         `json:"parent_path,omitempty"`
}

// Engine runs the query algorithm of spec.md §4.2 against one
// repository.SearchRepository.
type Engine struct {
	repo       repository.SearchRepository
	embeddings embeddings.Client
	cfg        *config.Config
	logger     *zap.Logger
}

func NewEngine(repo repository.SearchRepository, client embeddings.Client, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{repo: repo, embeddings: client, cfg: cfg, logger: logger}
}

// Search runs the full hybrid algorithm: embed the query, try native
// vector search, fall back to client-side cosine over all documents
// when the backend signals it lacks vector-search support, rank by
// the hybrid relevance_score, cap per entity type, and split the
// result into servers/agents/tools.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	tokens := tokenizeQuery(q.Text)

	vectors, err := e.embeddings.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("embedding search query", err)
	}
	qv := vectors[0]

	limit := q.MaxResults
	if limit <= 0 {
		limit = defaultPerTypeCap * 3
	}
	candidateLimit := limit * candidateOverfetch

	scored, err := e.candidates(ctx, qv, q.EntityTypes, candidateLimit)
	if err != nil {
		return nil, err
	}

	toolBoostByParent := make(map[string]float64)
	for _, sd := range scored {
		if sd.Document.EntityType != domain.EntityTypeMCPTool {
			continue
		}
		if computeTextBoost(tokens, sd.Document) > 0 {
			toolBoostByParent[sd.Document.ParentPath] += 1.0
		}
	}

	hits := make([]scoredHit, 0, len(scored))
	for _, sd := range scored {
		textBoost := computeTextBoost(tokens, sd.Document) + toolBoostByParent[sd.Document.Path]
		relevance := hybridScore(sd.Score, textBoost, e.cfg.MongoVectorSimilarity)
		hits = append(hits, scoredHit{doc: sd.Document, score: relevance})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	return splitByType(hits, defaultPerTypeCap), nil
}

// candidates returns scored documents from the native vector-search
// path, falling back to AllDocuments + client-side cosine when the
// backend reports it lacks vector-search support (spec.md §4.2 Query
// algorithm, fallback path).
func (e *Engine) candidates(ctx context.Context, qv []float32, entityTypes []domain.EntityType, limit int) ([]repository.ScoredDocument, error) {
	results, err := e.repo.VectorSearch(ctx, qv, entityTypes, limit)
	if err == nil {
		return results, nil
	}
	if !errors.Is(err, repository.ErrNativeVectorSearchUnavailable) {
		return nil, registryerr.NewBackendUnavailable("running vector search", err)
	}

	e.logger.Debug("native vector search unavailable, falling back to client-side cosine")
	docs, err := e.repo.AllDocuments(ctx, entityTypes)
	if err != nil {
		return nil, err
	}

	out := make([]repository.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, repository.ScoredDocument{
			Document: d,
			Score:    textutil.CosineSimilarity(qv, d.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type scoredHit struct {
	doc   *domain.SearchDocument
	score float64
}

// computeTextBoost sums the lexical match weights of spec.md §4.2
// step 2 for one document: path 5.0, name 3.0, description 2.0,
// any-tag 1.5. The 1.0 per matching tool is added to a server's boost
// by Search. Matches use a case-insensitive regex or-joined from the
// tokens.
func computeTextBoost(tokens []string, doc *domain.SearchDocument) float64 {
	if len(tokens) == 0 {
		return 0
	}
	pattern := buildTokenPattern(tokens)
	if pattern == nil {
		return 0
	}

	var boost float64
	if pattern.MatchString(doc.Path) {
		boost += 5.0
	}
	if name, _ := doc.Metadata["name"].(string); pattern.MatchString(name) {
		boost += 3.0
	}
	if desc, _ := doc.Metadata["description"].(string); pattern.MatchString(desc) {
		boost += 2.0
	}
	if tagsMatch(pattern, doc.Metadata["tags"]) {
		boost += 1.5
	}
	return boost
}

func buildTokenPattern(tokens []string) *regexp.Regexp {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile("(?i)" + strings.Join(escaped, "|"))
	if err != nil {
		return nil
	}
	return re
}

func tagsMatch(pattern *regexp.Regexp, tags any) bool {
	list, ok := tags.([]string)
	if !ok {
		return false
	}
	for _, t := range list {
		if pattern.MatchString(t) {
			return true
		}
	}
	return false
}

// hybridScore combines the vector similarity with the text boost per
// spec.md §4.2 step 3: normalize cosine similarity from [-1,1] to
// [0,1], add 0.1 * text_boost, clamp to [0,1].
func hybridScore(vectorScore, textBoost float64, metric config.VectorSimilarity) float64 {
	normalized := vectorScore
	if metric == config.SimilarityCosine {
		normalized = (vectorScore + 1) / 2
	}
	score := normalized + 0.1*textBoost
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// splitByType buckets already-sorted hits into servers/agents/tools,
// capping each at perTypeCap (spec.md §4.2 step 4 default: 3/3/3).
func splitByType(hits []scoredHit, perTypeCap int) *Result {
	result := &Result{}
	for _, h := range hits {
		hit := Hit{Path: h.doc.Path, Score: h.score, Metadata: h.doc.Metadata, ParentPath: h.doc.ParentPath}
		switch h.doc.EntityType {
		case domain.EntityTypeMCPServer:
			if len(result.Servers) < perTypeCap {
				result.Servers = append(result.Servers, hit)
			}
		case domain.EntityTypeA2AAgent:
			if len(result.Agents) < perTypeCap {
				result.Agents = append(result.Agents, hit)
			}
		case domain.EntityTypeMCPTool:
			if len(result.Tools) < perTypeCap {
				result.Tools = append(result.Tools, hit)
			}
		}
	}
	return result
}
