package directory

import (
	"context"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is a seeded in-memory Repository. It backs local runs
// without a database and the HTTP tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	employees []Employee
}

// NewMemoryRepository returns a repository seeded with a small directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		employees: []Employee{
			{ID: "1", Name: "Mary", Email: "mary@staffdir.org", Department: "HR"},
			{ID: "2", Name: "John", Email: "john@staffdir.org", Department: "IT"},
			{ID: "3", Name: "Sam", Email: "sam@staffdir.org", Department: "IT"},
		},
	}
}

func (r *MemoryRepository) List(context.Context) ([]Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Employee, len(r.employees))
	copy(out, r.employees)
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return Employee{}, ErrNotFound
}
