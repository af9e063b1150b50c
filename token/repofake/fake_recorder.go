package tokenfakerepo

import (
	"sync"

	"github.com/jrsteele09/tableau-pat-provisioner/token"
)

var _ token.Recorder = (*FakeRecorder)(nil)

// FakeRecorder keeps records in memory and can be told to fail.
type FakeRecorder struct {
	records []token.PatRecord
	err     error
	lock    sync.RWMutex
}

func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

func (r *FakeRecorder) Record(record *token.PatRecord) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *record)
	return nil
}

// FailWith makes every following Record call return err.
func (r *FakeRecorder) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

func (r *FakeRecorder) Records() []token.PatRecord {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]token.PatRecord(nil), r.records...)
}
