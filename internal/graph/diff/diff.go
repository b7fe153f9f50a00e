// Package diff computes the create/update/delete operations that move a
// stored collection of graph records to a freshly built one.
package diff

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"threatsync/pkg/models"
)

// Record is a graph entity or relationship with a stable identity key.
type Record interface {
	comparable
	GraphKey() string
	GraphType() string
}

// OperationSet holds the result of comparing an old and a new collection.
type OperationSet[T Record] struct {
	Created []T
	Updated []T
	Deleted []T
	// Duplicates counts records dropped because an earlier record on the same
	// side already used their key.
	Duplicates int
}

var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

// Equal reports whether two records carry the same tracked attributes.
func Equal[T Record](a, b T) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// Compute partitions old and next by key: next-only records are created,
// old-only records are deleted, and records on both sides are updated only
// when an attribute differs.
func Compute[T Record](old, next []T) OperationSet[T] {
	var set OperationSet[T]
	var zero T

	oldByKey := make(map[string]T, len(old))
	oldOrder := make([]string, 0, len(old))
	for _, rec := range old {
		if rec == zero {
			continue
		}
		key := rec.GraphKey()
		if _, ok := oldByKey[key]; ok {
			set.Duplicates++
			continue
		}
		oldByKey[key] = rec
		oldOrder = append(oldOrder, key)
	}

	seen := make(map[string]struct{}, len(next))
	for _, rec := range next {
		if rec == zero {
			continue
		}
		key := rec.GraphKey()
		if _, ok := seen[key]; ok {
			set.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		prev, ok := oldByKey[key]
		switch {
		case !ok:
			set.Created = append(set.Created, rec)
		case !Equal(prev, rec):
			set.Updated = append(set.Updated, rec)
		}
	}

	for _, key := range oldOrder {
		if _, ok := seen[key]; !ok {
			set.Deleted = append(set.Deleted, oldByKey[key])
		}
	}

	return set
}

// Empty reports whether the set carries no operations.
func (s OperationSet[T]) Empty() bool {
	return len(s.Created) == 0 && len(s.Updated) == 0 && len(s.Deleted) == 0
}

// Summary counts operations by kind.
func (s OperationSet[T]) Summary() models.OperationsSummary {
	return models.OperationsSummary{
		Created: len(s.Created),
		Updated: len(s.Updated),
		Deleted: len(s.Deleted),
	}
}

// Operations flattens the set into publishable operations of category.
func (s OperationSet[T]) Operations(category string) []models.Operation {
	ops := make([]models.Operation, 0, len(s.Created)+len(s.Updated)+len(s.Deleted))
	add := func(kind models.OperationKind, recs []T) {
		for _, rec := range recs {
			ops = append(ops, models.Operation{
				Kind:     kind,
				Category: category,
				Type:     rec.GraphType(),
				Key:      rec.GraphKey(),
				Data:     rec,
			})
		}
	}
	add(models.OperationCreate, s.Created)
	add(models.OperationUpdate, s.Updated)
	add(models.OperationDelete, s.Deleted)
	return ops
}
