package authorityfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/authority"
	"github.com/jrsteele09/go-auth-client/session"
)

var _ authority.Service = (*FakeService)(nil)

// FakeService is a scriptable authority.Service for tests. Behavior is
// controlled through ValidateFunc and IssueFunc; unscripted calls fail the
// way an unreachable authority would.
type FakeService struct {
	ValidateFunc func(ctx context.Context, cred session.Credential) (*session.Identity, error)
	IssueFunc    func(ctx context.Context) (session.Credential, *session.Identity, error)

	lock          sync.Mutex
	validateCalls int
	issueCalls    int
}

func NewFakeService() *FakeService {
	return &FakeService{}
}

func (f *FakeService) Validate(ctx context.Context, cred session.Credential) (*session.Identity, error) {
	f.lock.Lock()
	f.validateCalls++
	f.lock.Unlock()

	if f.ValidateFunc == nil {
		return nil, authority.ErrUnreachable
	}
	return f.ValidateFunc(ctx, cred)
}

func (f *FakeService) Issue(ctx context.Context) (session.Credential, *session.Identity, error) {
	f.lock.Lock()
	f.issueCalls++
	f.lock.Unlock()

	if f.IssueFunc == nil {
		return "", nil, authority.ErrUnreachable
	}
	return f.IssueFunc(ctx)
}

// ValidateCalls returns how many times Validate was invoked.
func (f *FakeService) ValidateCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.validateCalls
}

// IssueCalls returns how many times Issue was invoked.
func (f *FakeService) IssueCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.issueCalls
}
