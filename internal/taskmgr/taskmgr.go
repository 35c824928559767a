package taskmgr

import (
	"context"
	"errors"
	"sync"
)

var ErrTooManyDownloads = errors.New("too many active downloads")

// TaskManager tracks in-flight downloads. Downloads of the same video run one
// after another so they never write the same output path at once; the total
// number of downloads is optionally capped.
type TaskManager struct {
	mu     sync.Mutex
	videos map[string]*videoLock
	active int
	sem    chan struct{} // nil when unlimited
}

type videoLock struct {
	ch      chan struct{} // one slot, held by the running download
	waiters int
}

func NewTaskManager(maxActive int) *TaskManager {
	tm := &TaskManager{videos: make(map[string]*videoLock)}
	if maxActive > 0 {
		tm.sem = make(chan struct{}, maxActive)
	}
	return tm
}

// Acquire reserves a download slot for videoID. It fails fast with
// ErrTooManyDownloads when the cap is reached and otherwise waits for any
// running download of the same video. The returned release must be called.
func (tm *TaskManager) Acquire(ctx context.Context, videoID string) (func(), error) {
	if tm.sem != nil {
		select {
		case tm.sem <- struct{}{}:
		default:
			return nil, ErrTooManyDownloads
		}
	}

	tm.mu.Lock()
	vl, ok := tm.videos[videoID]
	if !ok {
		vl = &videoLock{ch: make(chan struct{}, 1)}
		tm.videos[videoID] = vl
	}
	vl.waiters++
	tm.active++
	tm.mu.Unlock()

	select {
	case vl.ch <- struct{}{}:
	case <-ctx.Done():
		tm.leave(videoID, vl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-vl.ch
			tm.leave(videoID, vl)
		})
	}, nil
}

func (tm *TaskManager) leave(videoID string, vl *videoLock) {
	tm.mu.Lock()
	vl.waiters--
	if vl.waiters == 0 {
		delete(tm.videos, videoID)
	}
	tm.active--
	tm.mu.Unlock()

	if tm.sem != nil {
		<-tm.sem
	}
}

func (tm *TaskManager) Active() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.active
}
