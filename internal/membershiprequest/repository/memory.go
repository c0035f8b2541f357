package repository

import (
	"context"
	"sort"
	"sync"

	memberdomain "community-cms/backend/internal/member/domain"
	memberrepo "community-cms/backend/internal/member/repository"
	"community-cms/backend/internal/membershiprequest/domain"
)

// MemoryStore is an in-process Store. Each request has its own lock, and writes made inside
// WithLockedRequest are staged and applied only when the callback succeeds.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[string]*domain.MembershipRequest
	history   map[string][]domain.StatusHistoryEntry
	votes     map[string]map[string]domain.Vote
	members   map[string]*memberdomain.Member
	numbers   map[string]struct{}
	memberSeq int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*domain.MembershipRequest),
		history:  make(map[string][]domain.StatusHistoryEntry),
		votes:    make(map[string]map[string]domain.Vote),
		members:  make(map[string]*memberdomain.Member),
		numbers:  make(map[string]struct{}),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Create(ctx context.Context, req *domain.MembershipRequest, entry *domain.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *req
	s.requests[req.ID] = &c
	entry.Seq = 1
	s.history[req.ID] = []domain.StatusHistoryEntry{*entry}
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) List(ctx context.Context, status domain.Status, limit, offset int32) ([]*domain.MembershipRequest, error) {
	s.mu.RLock()
	var all []*domain.MembershipRequest
	for _, r := range s.requests {
		if status != "" && r.Status != status {
			continue
		}
		c := *r
		all = append(all, &c)
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if int(offset) >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && int(limit) < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) ListHistory(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StatusHistoryEntry(nil), s.history[requestID]...), nil
}

func (s *MemoryStore) ListVotes(ctx context.Context, requestID string) ([]domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedVotes(s.votes[requestID]), nil
}

// Members returns all committed members ordered by member number.
func (s *MemoryStore) Members() []memberdomain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]memberdomain.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out
}

func (s *MemoryStore) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) WithLockedRequest(ctx context.Context, id string, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	req, _ := s.GetByID(ctx, id)
	if req == nil {
		return domain.ErrNotFound
	}
	s.mu.RLock()
	tx := &memoryTx{
		store:     s,
		req:       req,
		baseSeq:   len(s.history[id]),
		votes:     make(map[string]domain.Vote, len(s.votes[id])),
		committed: req.Version,
	}
	for k, v := range s.votes[id] {
		tx.votes[k] = v
	}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.apply(tx)
}

func (s *MemoryStore) apply(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := tx.req.ID
	if cur := s.requests[id]; cur == nil || cur.Version != tx.committed {
		return domain.ErrConflictingVote
	}
	for _, m := range tx.members {
		if _, taken := s.numbers[m.MemberNumber]; taken {
			return memberrepo.ErrDuplicateMemberNumber
		}
	}
	for _, m := range tx.members {
		c := m
		s.members[m.ID] = &c
		s.numbers[m.MemberNumber] = struct{}{}
	}
	if tx.dirty {
		c := *tx.req
		s.requests[id] = &c
	}
	s.history[id] = append(s.history[id], tx.history...)
	s.votes[id] = tx.votes
	return nil
}

type memoryTx struct {
	store     *MemoryStore
	req       *domain.MembershipRequest
	committed int64
	dirty     bool
	baseSeq   int
	history   []domain.StatusHistoryEntry
	votes     map[string]domain.Vote
	members   []memberdomain.Member
}

func (t *memoryTx) Request() *domain.MembershipRequest {
	c := *t.req
	return &c
}

func (t *memoryTx) UpdateRequest(ctx context.Context, req *domain.MembershipRequest) error {
	if req.Version != t.req.Version {
		return domain.ErrConflictingVote
	}
	req.Version++
	c := *req
	t.req = &c
	t.dirty = true
	return nil
}

func (t *memoryTx) AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	entry.Seq = t.baseSeq + len(t.history) + 1
	t.history = append(t.history, *entry)
	return nil
}

func (t *memoryTx) ListVotes(ctx context.Context) ([]domain.Vote, error) {
	return sortedVotes(t.votes), nil
}

func (t *memoryTx) SaveVote(ctx context.Context, v *domain.Vote) error {
	if prev, ok := t.votes[v.VoterUserID]; ok {
		v.CastAt = prev.CastAt
	}
	t.votes[v.VoterUserID] = *v
	return nil
}

func (t *memoryTx) NextMemberSeq(ctx context.Context) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.memberSeq++
	return t.store.memberSeq, nil
}

func (t *memoryTx) CreateMember(ctx context.Context, m *memberdomain.Member) error {
	for _, staged := range t.members {
		if staged.MemberNumber == m.MemberNumber {
			return memberrepo.ErrDuplicateMemberNumber
		}
	}
	t.members = append(t.members, *m)
	return nil
}

func sortedVotes(m map[string]domain.Vote) []domain.Vote {
	out := make([]domain.Vote, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CastAt.Equal(out[j].CastAt) {
			return out[i].CastAt.Before(out[j].CastAt)
		}
		return out[i].VoterUserID < out[j].VoterUserID
	})
	return out
}
