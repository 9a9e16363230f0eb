package taskmanager

import "sync/atomic"

func atomicIncr(v *int64) int64 { return atomic.AddInt64(v, 1) }
func atomicDecr(v *int64) int64 { return atomic.AddInt64(v, -1) }
func atomicLoad(v *int64) int64 { return atomic.LoadInt64(v) }
