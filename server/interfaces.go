package server

import (
	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/dispatch"
	"i4.energy/across/remoteio/protocol"
)

// Dispatcher executes complete command lines on behalf of a connection.
type Dispatcher interface {
	Dispatch(c dispatch.Client, cmd *protocol.CommandLine) error
}

// Registry is the part of the input registry involved in teardown.
type Registry interface {
	UnsubscribeAll(sub dio.Subscriber)
}

// Observer is told about connection and command events. Implementations
// must be safe for concurrent use.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	ConnectionRejected()
	CommandHandled(id protocol.ServiceID, err error)
	NotificationSent()
	NotificationDropped()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened() {}
func (nopObserver) ConnectionClosed() {}
func (nopObserver) ConnectionRejected() {}
func (nopObserver) CommandHandled(protocol.ServiceID, error) {}
func (nopObserver) NotificationSent() {}
func (nopObserver) NotificationDropped() {}

var (
	_ Dispatcher      = (*dispatch.Dispatcher)(nil)
	_ Registry        = (*dio.Inputs)(nil)
	_ dispatch.Client = (*Conn)(nil)
)
