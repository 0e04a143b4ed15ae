// Package directory is the read side of the employee listing.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound indicates the employee does not exist.
var ErrNotFound = errors.New("directory: not found")

// Employee is one directory entry.
type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// Repository serves directory reads.
type Repository interface {
	List(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, id string) (Employee, error)
}
