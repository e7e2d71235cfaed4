package kv

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Entry is a stored key/value pair.
type Entry struct {
	Key   string
	Value string
}

// Store is a string key/value store. Set overwrites.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// SortEntries orders entries by key.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}
