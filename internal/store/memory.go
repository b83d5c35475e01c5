package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps records in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  map[Entity]int64
	records map[Entity]map[int64]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  make(map[Entity]int64),
		records: make(map[Entity]map[int64]Record),
	}
}

func (s *MemoryStore) FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Record, 0, len(s.records[entity]))
	for _, r := range s.records[entity] {
		out = append(out, clone(r))
	}
	s.mu.RUnlock()

	orderBy := q.OrderBy
	if len(orderBy) == 0 {
		orderBy = []Order{{Field: IDField}}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		for _, o := range orderBy {
			c := compare(a[o.Field], b[o.Field])
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	out = window(out, q.Paging)
	for i, r := range out {
		out[i] = Project(r, q.Fields)
	}
	return out, nil
}

func (s *MemoryStore) GetRecordByID(ctx context.Context, entity Entity, id int64, q Query) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[entity][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return Project(r, q.Fields), nil
}

func (s *MemoryStore) CreateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[entity] == nil {
		s.records[entity] = make(map[int64]Record)
	}

	resp := Response{Success: true, Results: make([]Result, 0, len(records))}
	for _, in := range records {
		s.nextID[entity]++
		id := s.nextID[entity]

		r := clone(in)
		r[IDField] = id
		s.records[entity][id] = r
		resp.Results = append(resp.Results, Result{Success: true, Data: clone(r)})
	}
	return resp, nil
}

func (s *MemoryStore) UpdateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := Response{Success: true, Results: make([]Result, 0, len(records))}
	for _, in := range records {
		id, _ := in.ID()
		existing, ok := s.records[entity][id]
		if !ok {
			resp.Results = append(resp.Results, Result{Message: ErrRecordNotFound.Error(), NotFound: true})
			continue
		}
		for k, v := range in {
			if k == IDField {
				continue
			}
			existing[k] = v
		}
		resp.Results = append(resp.Results, Result{Success: true, Data: clone(existing)})
	}
	return resp, nil
}

func (s *MemoryStore) DeleteRecords(ctx context.Context, entity Entity, ids []int64) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := Response{Success: true, Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		if _, ok := s.records[entity][id]; !ok {
			resp.Results = append(resp.Results, Result{Message: ErrRecordNotFound.Error(), NotFound: true})
			continue
		}
		delete(s.records[entity], id)
		resp.Results = append(resp.Results, Result{Success: true, Data: Record{IDField: id}})
	}
	return resp, nil
}

func window(records []Record, p Paging) []Record {
	if p.Offset > 0 {
		if p.Offset >= len(records) {
			return records[:0]
		}
		records = records[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(records) {
		records = records[:p.Limit]
	}
	return records
}
