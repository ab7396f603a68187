/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package spinlock implements a tiny test-and-set mutex for short critical
// sections (a handful of memory copies or adds), used to stripe the
// parameter store into per-group locks.
package spinlock

import "runtime"
import "sync/atomic"

// Spinlock is a busy-wait mutual exclusion primitive. The zero value is an
// unlocked spinlock, ready to use.
type Spinlock struct {
	state int32
}

const (
	unlocked int32 = 0
	locked   int32 = 1
)

// Lock busy-waits until the spinlock is acquired. Between attempts it calls
// runtime.Gosched so contended spins don't starve the Go scheduler the way a
// true OS-level spin would.
func (s *Spinlock) Lock() {
	for !atomic.CompareAndSwapInt32(&s.state, unlocked, locked) {
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the spinlock without waiting.
func (s *Spinlock) TryLock() bool {
	return atomic.CompareAndSwapInt32(&s.state, unlocked, locked)
}

// Unlock releases the spinlock. Unlocking a spinlock that isn't held is a
// programmer error, same as with sync.Mutex.
func (s *Spinlock) Unlock() {
	atomic.StoreInt32(&s.state, unlocked)
}

// Guard acquires the spinlock and returns a release function, so callers can
// write `defer lock.Guard()()` to guarantee release on every exit path,
// including panics.
func (s *Spinlock) Guard() func() {
	s.Lock()
	return s.Unlock
}
