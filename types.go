package project2yaml

import (
	"github.com/jward/project2yaml/internal/mapfile"
	"github.com/jward/project2yaml/internal/store"
)

// Public type aliases for internal types used in the Engine API.

type Entry = mapfile.Entry
type ProjectMap = mapfile.ProjectMap
type Status = mapfile.Status
type Run = store.Run

const (
	StatusUpToDate = mapfile.StatusUpToDate
	StatusUpdated  = mapfile.StatusUpdated
)
