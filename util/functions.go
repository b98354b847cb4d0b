package util

import (
	"runtime"

	"go.uber.org/zap"
)

// MemoryFields snapshots the allocator counters as log fields.
func MemoryFields() []zap.Field {
	s := &runtime.MemStats{}
	runtime.ReadMemStats(s)
	return []zap.Field{
		zap.Uint64("alloc", s.Alloc),
		zap.Uint64("mallocs", s.Mallocs),
		zap.Uint64("frees", s.Frees),
		zap.Uint64("heapObjects", s.HeapObjects),
		zap.Uint64("heapReleased", s.HeapReleased),
		zap.Uint64("stackInuse", s.StackInuse),
		zap.Uint32("gcCycles", s.NumGC),
	}
}
