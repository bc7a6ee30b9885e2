package database

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/presence-check/internal/facematch"
)

// IndexMatch is a registered agent close to a query embedding.
type IndexMatch struct {
	AgentID  string
	Distance float64
}

// TemplateIndex wraps an HNSW graph over registered face embeddings. It is
// used to spot a face that is already registered under another agent.
type TemplateIndex struct {
	graph   *hnsw.Graph[string]
	matcher *facematch.Matcher
	vectors map[string][]float32 // agent ID to embedding
	dims    int
	mu      sync.RWMutex
}

// NewTemplateIndex creates an empty index. Distances reported by Nearest use
// the matcher's metric.
func NewTemplateIndex(matcher *facematch.Matcher) *TemplateIndex {
	return &TemplateIndex{
		matcher: matcher,
		vectors: make(map[string][]float32),
	}
}

func (idx *TemplateIndex) newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	if idx.matcher.Metric == facematch.MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	return g
}

// Build replaces the index content with the given templates. Templates whose
// dimension differs from the first indexed one are skipped.
func (idx *TemplateIndex) Build(templates []StoredTemplate) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.graph = nil
	idx.dims = 0
	idx.vectors = make(map[string][]float32, len(templates))

	skipped := 0
	for i := range templates {
		if !idx.addLocked(templates[i].AgentID, templates[i].Embedding) {
			skipped++
		}
	}
	return skipped
}

// Upsert adds or replaces the embedding of one agent.
func (idx *TemplateIndex) Upsert(tmpl StoredTemplate) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addLocked(tmpl.AgentID, tmpl.Embedding)
}

func (idx *TemplateIndex) addLocked(agentID string, embedding []float32) bool {
	if len(embedding) == 0 {
		return false
	}
	if idx.dims != 0 && len(embedding) != idx.dims {
		return false
	}
	if idx.graph == nil {
		idx.graph = idx.newGraph()
		idx.dims = len(embedding)
	}

	vec := append([]float32(nil), embedding...)
	_, replaced := idx.vectors[agentID]
	idx.vectors[agentID] = vec
	if replaced {
		idx.rebuildLocked()
		return true
	}
	idx.graph.Add(hnsw.MakeNode(agentID, vec))
	return true
}

// rebuildLocked recreates the graph from the vectors map.
func (idx *TemplateIndex) rebuildLocked() {
	idx.graph = idx.newGraph()
	keys := make([]string, 0, len(idx.vectors))
	for k := range idx.vectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		idx.graph.Add(hnsw.MakeNode(k, idx.vectors[k]))
	}
}

// Nearest returns up to k registered agents ordered by increasing distance.
func (idx *TemplateIndex) Nearest(embedding []float32, k int) []IndexMatch {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || len(idx.vectors) == 0 || len(embedding) != idx.dims || k <= 0 {
		return nil
	}

	neighbors := idx.graph.Search(embedding, k)
	matches := make([]IndexMatch, 0, len(neighbors))
	for _, n := range neighbors {
		vec, ok := idx.vectors[n.Key]
		if !ok {
			continue
		}
		// Recompute with the matcher so distances agree with verification.
		matches = append(matches, IndexMatch{AgentID: n.Key, Distance: idx.matcher.Distance(vec, embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches
}

// FindOtherAgent returns the closest agent other than exclude whose face
// matches embedding within the matcher's tolerance.
func (idx *TemplateIndex) FindOtherAgent(embedding []float32, exclude string) (IndexMatch, bool) {
	for _, m := range idx.Nearest(embedding, 5) {
		if m.AgentID == exclude {
			continue
		}
		if facematch.Match(m.Distance, idx.matcher.Tolerance) {
			return m, true
		}
		break
	}
	return IndexMatch{}, false
}

// Count returns the number of indexed agents.
func (idx *TemplateIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}
