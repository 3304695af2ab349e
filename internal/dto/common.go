// Package dto holds request and response shapes shared by every module.
package dto

// Status is the lifecycle flag stored on users, roles and grants.
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
	// StatusAll is only valid in list queries and disables the status filter.
	StatusAll Status = 2
)

// GetOne addresses a single record.
type GetOne struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// Delete soft-deletes a record, or removes the row when Delete is set.
type Delete struct {
	ID     int64 `json:"id" validate:"required,gt=0"`
	Delete bool  `json:"delete"`
}

// ListQuery drives the paginated list commands.
type ListQuery struct {
	Page   int     `json:"page" validate:"omitempty,gte=1"`
	Limit  int     `json:"limit" validate:"omitempty,gte=1,lte=1000"`
	Search string  `json:"search" validate:"omitempty,max=255"`
	Status *Status `json:"status" validate:"omitempty,oneof=0 1 2"`
	All    bool    `json:"all"`
}

// StatusFilter returns the status to filter on, and false when all statuses are requested.
func (q ListQuery) StatusFilter() (Status, bool) {
	if q.Status == nil {
		return StatusActive, true
	}
	if *q.Status == StatusAll {
		return 0, false
	}
	return *q.Status, true
}

// List is the envelope of list responses. TotalPage is omitted for unpaginated lists.
type List[T any] struct {
	Data      []T  `json:"data"`
	TotalDocs int  `json:"totalDocs"`
	TotalPage *int `json:"totalPage,omitempty"`
}

// NewList wraps an unpaginated result.
func NewList[T any](data []T) List[T] {
	if data == nil {
		data = []T{}
	}
	return List[T]{Data: data, TotalDocs: len(data)}
}

// NewPage wraps one page of a paginated result.
func NewPage[T any](data []T, totalDocs, totalPage int) List[T] {
	if data == nil {
		data = []T{}
	}
	return List[T]{Data: data, TotalDocs: totalDocs, TotalPage: &totalPage}
}

// Empty is the payload of commands that take no input.
type Empty struct{}
