package port

import "tokenprep/internal/domain"

type CountStore interface {
	GetCount(path string) (domain.FileCount, bool, error)

	PutCount(count domain.FileCount) error

	DeleteCount(path string) error

	ListCounts() ([]domain.FileCount, error)

	Clear() error

	Close() error
}
