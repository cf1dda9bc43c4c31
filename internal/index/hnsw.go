package index

import (
	"container/heap"
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/diffsec/vectordb/internal/distance"
)

// Default HNSW construction/search parameters.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 50
)

// HnswIndex is a Hierarchical Navigable Small World graph index:
// approximate nearest-neighbor search over a multi-layer proximity
// graph, with greedy descent from a single entry point down to the
// bottom layer.
type HnswIndex struct {
	dimension      int
	metric         distance.Metric
	m              int
	efConstruction int
	efSearch       int

	mu    sync.RWMutex
	inner hnswState
}

type hnswState struct {
	vectors    [][]float32
	labelToID  map[uint64]int
	idToLabel  []uint64
	layers     [][][]int // layers[level][nodeID] -> neighbor node IDs
	nodeLevels []int
	entryPoint int // -1 means no entry point yet
	maxLevel   int
	deleted    map[int]bool
	ml         float64
}

// NewHnswIndex creates an HNSW index with the default parameters
// (M=16, efConstruction=200, efSearch=50).
func NewHnswIndex(dimension int, metric distance.Metric) *HnswIndex {
	return NewHnswIndexWithParams(dimension, metric, DefaultM, DefaultEfConstruction, DefaultEfSearch)
}

// NewHnswIndexWithParams creates an HNSW index with explicit parameters.
func NewHnswIndexWithParams(dimension int, metric distance.Metric, m, efConstruction, efSearch int) *HnswIndex {
	return &HnswIndex{
		dimension:      dimension,
		metric:         metric,
		m:              m,
		efConstruction: efConstruction,
		efSearch:       efSearch,
		inner: hnswState{
			labelToID:  make(map[uint64]int),
			entryPoint: -1,
			deleted:    make(map[int]bool),
			ml:         1 / math.Log(float64(m)),
		},
	}
}

func randomLevel(ml float64) int {
	r := rand.Float64()
	if r <= 0 {
		r = math.SmallestNonzeroFloat64
	}
	return int(math.Floor(-math.Log(r) * ml))
}

func (h *HnswIndex) Insert(label uint64, vector []float32) error {
	if len(vector) != h.dimension {
		return &DimensionError{Expected: h.dimension, Got: len(vector)}
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	if h.metric == distance.Cosine {
		distance.Normalize(vec)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s := &h.inner

	if id, ok := s.labelToID[label]; ok {
		s.vectors[id] = vec
		delete(s.deleted, id)
		return nil
	}

	newID := len(s.vectors)
	level := randomLevel(s.ml)

	s.vectors = append(s.vectors, vec)
	s.labelToID[label] = newID
	s.idToLabel = append(s.idToLabel, label)
	s.nodeLevels = append(s.nodeLevels, level)

	for len(s.layers) <= level {
		s.layers = append(s.layers, nil)
	}
	for l := 0; l <= level; l++ {
		growLayer(&s.layers[l], newID)
	}

	if s.entryPoint < 0 {
		s.entryPoint = newID
		s.maxLevel = level
		return nil
	}

	currEP := s.entryPoint
	query := s.vectors[newID]
	for lev := s.maxLevel; lev > level; lev-- {
		currEP = greedyClosest(s.vectors, s.layers, lev, currEP, query, s.deleted, h.metric)
	}

	top := level
	if s.maxLevel < top {
		top = s.maxLevel
	}
	for lev := top; lev >= 0; lev-- {
		candidates := searchLayer(s.vectors, s.layers, lev, currEP, query, h.efConstruction, s.deleted, h.metric)

		maxNeighbors := h.m
		if lev == 0 {
			maxNeighbors = h.m * 2
		}
		n := len(candidates)
		if n > maxNeighbors {
			n = maxNeighbors
		}
		neighbors := make([]int, n)
		for i := 0; i < n; i++ {
			neighbors[i] = candidates[i].id
		}

		growLayer(&s.layers[lev], newID)
		s.layers[lev][newID] = neighbors

		for _, neighbor := range neighbors {
			growLayer(&s.layers[lev], neighbor)
			s.layers[lev][neighbor] = append(s.layers[lev][neighbor], newID)
			if len(s.layers[lev][neighbor]) > maxNeighbors {
				nv := s.vectors[neighbor]
				scored := make([]heapItem, len(s.layers[lev][neighbor]))
				for i, nb := range s.layers[lev][neighbor] {
					scored[i] = heapItem{score: distance.Score(h.metric, nv, s.vectors[nb]), id: nb}
				}
				sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
				if len(scored) > maxNeighbors {
					scored = scored[:maxNeighbors]
				}
				pruned := make([]int, len(scored))
				for i, sc := range scored {
					pruned[i] = sc.id
				}
				s.layers[lev][neighbor] = pruned
			}
		}

		if len(candidates) > 0 {
			currEP = candidates[0].id
		}
	}

	if level > s.maxLevel {
		s.entryPoint = newID
		s.maxLevel = level
	}
	return nil
}

func growLayer(layer *[][]int, upTo int) {
	for len(*layer) <= upTo {
		*layer = append(*layer, nil)
	}
}

func (h *HnswIndex) InsertBatch(labels []uint64, vectors [][]float32) error {
	return insertBatch(h, labels, vectors)
}

func (h *HnswIndex) Delete(label uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.inner.labelToID[label]; ok {
		h.inner.deleted[id] = true
		delete(h.inner.labelToID, label)
	}
	return nil
}

func (h *HnswIndex) Search(query []float32, topK int) (SearchResult, error) {
	if len(query) != h.dimension {
		return SearchResult{}, &DimensionError{Expected: h.dimension, Got: len(query)}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := &h.inner
	if s.entryPoint < 0 || topK == 0 {
		return EmptySearchResult(), nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if h.metric == distance.Cosine {
		distance.Normalize(q)
	}

	currEP := s.entryPoint
	for lev := s.maxLevel; lev >= 1; lev-- {
		currEP = greedyClosest(s.vectors, s.layers, lev, currEP, q, s.deleted, h.metric)
	}

	ef := h.efSearch
	if topK > ef {
		ef = topK
	}
	candidates := searchLayer(s.vectors, s.layers, 0, currEP, q, ef, s.deleted, h.metric)

	out := SearchResult{}
	for _, c := range candidates {
		if s.deleted[c.id] {
			continue
		}
		out.Labels = append(out.Labels, s.idToLabel[c.id])
		out.Scores = append(out.Scores, c.score)
		if len(out.Labels) == topK {
			break
		}
	}
	return out, nil
}

func (h *HnswIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.inner.labelToID)
}

func (h *HnswIndex) Dimension() int { return h.dimension }

func (h *HnswIndex) Metric() distance.Metric { return h.metric }

// NeedsRebuild reports whether tombstoned nodes now make up more than
// half of all stored nodes (deleted*2 > total), the heuristic for
// "compact via full rebuild".
func (h *HnswIndex) NeedsRebuild() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := len(h.inner.vectors)
	if total == 0 {
		return false
	}
	return len(h.inner.deleted)*2 > total
}

// greedyClosest performs a single-path greedy descent at level,
// repeatedly stepping to a strictly closer neighbor until none exists.
func greedyClosest(vectors [][]float32, layers [][][]int, level, start int, query []float32, deleted map[int]bool, metric distance.Metric) int {
	current := start
	currentScore := distance.Score(metric, query, vectors[current])
	for {
		changed := false
		if level < len(layers) && current < len(layers[level]) {
			for _, neighbor := range layers[level][current] {
				if deleted[neighbor] {
					continue
				}
				score := distance.Score(metric, query, vectors[neighbor])
				if score > currentScore {
					current = neighbor
					currentScore = score
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return current
}

// searchLayer runs an ef-bounded best-first search at level, returning
// candidates sorted by descending score.
func searchLayer(vectors [][]float32, layers [][][]int, level, entry int, query []float32, ef int, deleted map[int]bool, metric distance.Metric) []heapItem {
	visited := map[int]bool{entry: true}
	entryScore := distance.Score(metric, query, vectors[entry])

	candidates := &maxHeap{{score: entryScore, id: entry}}
	heap.Init(candidates)
	results := &minHeap{}
	if !deleted[entry] {
		heap.Push(results, heapItem{score: entryScore, id: entry})
	}

	for candidates.Len() > 0 {
		top := heap.Pop(candidates).(heapItem)
		if results.Len() >= ef {
			worst := (*results)[0]
			if top.score < worst.score {
				break
			}
		}

		if level < len(layers) && top.id < len(layers[level]) {
			for _, neighbor := range layers[level][top.id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				score := distance.Score(metric, query, vectors[neighbor])

				shouldAdd := results.Len() < ef
				if !shouldAdd {
					shouldAdd = score > (*results)[0].score
				}

				if shouldAdd {
					heap.Push(candidates, heapItem{score: score, id: neighbor})
					if !deleted[neighbor] {
						heap.Push(results, heapItem{score: score, id: neighbor})
						if results.Len() > ef {
							heap.Pop(results)
						}
					}
				}
			}
		}
	}

	out := make([]heapItem, len(*results))
	copy(out, *results)
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// hnswBlob is the on-disk JSON shape of an HNSW index. The graph
// structure (vectors, layers, neighbor lists) is written out
// unfiltered, tombstoned nodes included, since compacting it would
// mean renumbering internal ids and patching every neighbor list that
// references them; instead the tombstone set itself is persisted in
// Deleted and restored verbatim on Load, so a deleted label stays
// deleted (and out of Len()/search results) across a save/reload.
type hnswBlob struct {
	Dimension      int         `json:"dimension"`
	M              int         `json:"m"`
	EfConstruction int         `json:"ef_construction"`
	EfSearch       int         `json:"ef_search"`
	Metric         string      `json:"metric"`
	Vectors        [][]float32 `json:"vectors"`
	IDToLabel      []uint64    `json:"id_to_label"`
	NodeLevels     []int       `json:"node_levels"`
	Layers         [][][]int   `json:"layers"`
	EntryPoint     *int        `json:"entry_point"`
	MaxLevel       int         `json:"max_level"`
	Deleted        []int       `json:"deleted,omitempty"`
}

func (h *HnswIndex) Save(dir string) error {
	h.mu.RLock()
	s := &h.inner
	blob := hnswBlob{
		Dimension:      h.dimension,
		M:              h.m,
		EfConstruction: h.efConstruction,
		EfSearch:       h.efSearch,
		Metric:         h.metric.String(),
		Vectors:        s.vectors,
		IDToLabel:      s.idToLabel,
		NodeLevels:     s.nodeLevels,
		Layers:         s.layers,
		MaxLevel:       s.maxLevel,
	}
	if s.entryPoint >= 0 {
		ep := s.entryPoint
		blob.EntryPoint = &ep
	}
	for id := range s.deleted {
		blob.Deleted = append(blob.Deleted, id)
	}
	sort.Ints(blob.Deleted)
	h.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "hnsw_index.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (h *HnswIndex) Load(dir string) error {
	path := filepath.Join(dir, "hnsw_index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var blob hnswBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.dimension = blob.Dimension
	h.m = blob.M
	h.efConstruction = blob.EfConstruction
	h.efSearch = blob.EfSearch
	h.metric = distance.ParseMetric(blob.Metric)

	s := &h.inner
	s.vectors = blob.Vectors
	s.idToLabel = blob.IDToLabel
	s.nodeLevels = blob.NodeLevels
	s.layers = blob.Layers
	s.maxLevel = blob.MaxLevel
	s.ml = 1 / math.Log(float64(h.m))
	s.deleted = make(map[int]bool, len(blob.Deleted))
	for _, id := range blob.Deleted {
		s.deleted[id] = true
	}
	if blob.EntryPoint != nil {
		s.entryPoint = *blob.EntryPoint
	} else {
		s.entryPoint = -1
	}

	s.labelToID = make(map[uint64]int, len(s.idToLabel))
	for id, label := range s.idToLabel {
		if s.deleted[id] {
			continue
		}
		s.labelToID[label] = id
	}
	return nil
}
