// Package mocks contains a gomock-style mock of authority.Authority, in
// the shape mockgen produces (and the shape
// damianoneill-net/v2/snmp/mocks's generated Conn mock follows, referenced
// from v2/snmp/manager_test.go): a struct embedding *gomock.Controller and
// a recorder, used by connection tests that need to assert call
// order (spec §5: "the authority's clientConnected completes before any
// messageReceived callback"), not just call outcome.
package mocks

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	authority "github.com/seanpm2001/jsonstream/authority"
	jsonvalue "github.com/seanpm2001/jsonstream/jsonvalue"
)

// MockAuthority is a mock of the authority.Authority interface.
type MockAuthority struct {
	ctrl     *gomock.Controller
	recorder *MockAuthorityMockRecorder
}

// MockAuthorityMockRecorder is the mock recorder for MockAuthority.
type MockAuthorityMockRecorder struct {
	mock *MockAuthority
}

// NewMockAuthority creates a new mock instance.
func NewMockAuthority(ctrl *gomock.Controller) *MockAuthority {
	mock := &MockAuthority{ctrl: ctrl}
	mock.recorder = &MockAuthorityMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAuthority) EXPECT() *MockAuthorityMockRecorder {
	return m.recorder
}

// ClientConnected mocks base method.
func (m *MockAuthority) ClientConnected(peer authority.Peer) authority.AuthorizationRecord {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ClientConnected", peer)
	ret0, _ := ret[0].(authority.AuthorizationRecord)
	return ret0
}

// ClientConnected indicates an expected call of ClientConnected.
func (mr *MockAuthorityMockRecorder) ClientConnected(peer interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ClientConnected", reflect.TypeOf((*MockAuthority)(nil).ClientConnected), peer)
}

// MessageReceived mocks base method.
func (m *MockAuthority) MessageReceived(peer authority.Peer, msg jsonvalue.Object) authority.AuthorizationRecord {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MessageReceived", peer, msg)
	ret0, _ := ret[0].(authority.AuthorizationRecord)
	return ret0
}

// MessageReceived indicates an expected call of MessageReceived.
func (mr *MockAuthorityMockRecorder) MessageReceived(peer, msg interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MessageReceived", reflect.TypeOf((*MockAuthority)(nil).MessageReceived), peer, msg)
}
