package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/pkg/metrics"
)

// Treap-based, in-memory RankStore implementation.
//
// Ordering: height DESC, then subjectID ASC (deterministic).
// We implement a BST comparator where "less" means ranks earlier
// (i.e., higher height ranks earlier). This makes in-order traversal
// produce the leaderboard from best to worst.

// heightScale controls fixed-point scaling from float64. Jump heights
// live in a narrow centimetre range, so six decimal places are plenty
// and overflow is not a concern.
const heightScale = 1_000_000

type heightFP int64

func toFixedPoint(x float64) heightFP {
	if math.IsNaN(x) {
		return 0
	}
	return heightFP(math.Round(x * heightScale))
}

func toFloat(x heightFP) float64 {
	return float64(x) / heightScale
}

// record stores the fixed-point height plus metadata for a subject's best.
type record struct {
	height        heightFP
	measurementID string
	method        model.Method
}

// treap node
type node struct {
	id     string
	height heightFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aHeight, aID) should appear before (bHeight, bID)
// in the leaderboard (higher ranks first).
func less(aHeight heightFP, aID string, bHeight heightFP, bID string) bool {
	if aHeight != bHeight {
		return aHeight > bHeight // higher jump ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// heightToPriority converts a height to a priority value so better jumps
// sit higher in the treap. Negative heights never reach the store, but the
// offset keeps the mapping total anyway.
func heightToPriority(h heightFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(h) + offset
}

func insert(n *node, id string, h heightFP) *node {
	if n == nil {
		return &node{id: id, height: h, prio: heightToPriority(h), size: 1}
	}
	if less(h, id, n.height, n.id) {
		n.left = insert(n.left, id, h)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, h)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, h heightFP) *node {
	if n == nil {
		return nil
	}
	if h == n.height && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, h)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, h)
		}
	} else if less(h, id, n.height, n.id) {
		n.left = deleteNode(n.left, id, h)
	} else {
		n.right = deleteNode(n.right, id, h)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order (highest first).
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, exists := records[n.id]; exists {
			*out = append(*out, Entry{SubjectID: n.id, HeightCm: toFloat(rec.height), MeasurementID: rec.measurementID, Method: rec.method})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// collectAll appends all entries in rank order (highest first).
func collectAll(n *node, byID map[string]record, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, byID, out)
	if rec, ok := byID[n.id]; ok {
		*out = append(*out, Entry{SubjectID: n.id, HeightCm: toFloat(rec.height), MeasurementID: rec.measurementID, Method: rec.method})
	}
	collectAll(n.right, byID, out)
}

type TreapStore struct {
	mu                    sync.RWMutex
	root                  *node
	byID                  map[string]record
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		metricsUpdateInterval: 5 * time.Second,
		byID:                  make(map[string]record),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)

	return s
}

// startMetricsUpdater starts a background goroutine that refreshes
// leaderboard gauges at the configured interval.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateTotalSubjects(s.Count(ctx))
			}
		}
	}()
}

// Close gracefully shuts down the background goroutine.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// UpdateBest implements RankStore.UpdateBest with O(log n) expected time.
func (s *TreapStore) UpdateBest(ctx context.Context, subjectID string, heightCm float64) (bool, error) {
	return s.UpdateBestWithMeta(ctx, subjectID, heightCm, "", "")
}

// UpdateBestWithMeta implements RankStore.UpdateBestWithMeta with O(log n)
// expected time.
func (s *TreapStore) UpdateBestWithMeta(ctx context.Context, subjectID string, heightCm float64, measurementID string, method model.Method) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	nh := toFixedPoint(heightCm)

	isNewSubject := false

	s.mu.Lock()
	if old, ok := s.byID[subjectID]; ok {
		if nh <= old.height { // not an improvement
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, subjectID, old.height)
	} else {
		isNewSubject = true
	}
	s.byID[subjectID] = record{height: nh, measurementID: measurementID, method: method}
	s.root = insert(s.root, subjectID, nh)
	s.mu.Unlock()

	if isNewSubject {
		metrics.UpdateTotalSubjects(s.Count(ctx))
	}
	return true, nil
}

// Rank returns the current rank and best height for a subject in O(n).
func (s *TreapStore) Rank(ctx context.Context, subjectID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[subjectID]; !ok {
		return Entry{}, ErrNotFound
	}

	allEntries := make([]Entry, 0, len(s.byID))
	collectAll(s.root, s.byID, &allEntries)
	sortEntries(allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		if entry.SubjectID == subjectID {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN returns the top N entries ordered by height desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of subjects.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// sortEntries orders by height desc, subjectID asc, matching the treap
// comparator.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].HeightCm != entries[j].HeightCm {
			return entries[i].HeightCm > entries[j].HeightCm
		}
		return entries[i].SubjectID < entries[j].SubjectID
	})
}

// assignRanksWithTies assigns ranks so subjects with the same height share
// a rank, and the next distinct height takes the following consecutive rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameHeightCount := 1
		for j := i + 1; j < len(entries) && entries[j].HeightCm == entries[i].HeightCm; j++ {
			entries[j].Rank = currentRank
			sameHeightCount++
		}

		currentRank++
		i += sameHeightCount - 1
	}
}
