// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

// Middleware is the dispatch table of a message transport bridge.
type Middleware struct {
	// State carries what a legacy bridge allocated for itself. New-style
	// bridges leave it zero.
	State MiddlewareState

	Init                Op
	Open                Op
	Close               Op
	Start               Op
	Stop                Op
	GetVersion          StringOp
	GetName             StringOp
	GetDefaultPayloadID StringOp
	GetMinVersion       StringOp

	Queue        QueueOps
	Transport    TransportOps
	Subscription SubscriptionOps
	Timer        TimerOps
	Publisher    PublisherOps
	Inbox        InboxOps
	Msg          MsgOps
}

// QueueOps are the event queue entry points.
type QueueOps struct {
	Create                HandleArgOp
	CreateUsingNative     HandleArgOp
	Destroy               HandleOp
	GetEventCount         HandleQuery
	Dispatch              HandleOp
	TimedDispatch         HandleArgOp
	DispatchEvent         HandleOp
	EnqueueEvent          HandleArgOp
	StopDispatch          HandleOp
	SetEnqueueCallback    HandleArgOp
	RemoveEnqueueCallback HandleOp
	GetNativeHandle       HandleQuery
	SetHighWatermark      HandleArgOp
	SetLowWatermark       HandleArgOp
}

// TransportOps are the transport entry points.
type TransportOps struct {
	Create                      HandleNameOp
	Destroy                     HandleOp
	IsValid                     HandleQuery
	ForceClientDisconnect       HandleNameOp
	FindConnection              HandleNameOp
	GetAllConnections           HandleArgOp
	GetAllServerConnections     HandleArgOp
	RequestConflation           HandleOp
	RequestEndOfConflation      HandleOp
	GetNumLoadBalanceAttributes HandleQuery
	GetLoadBalanceScheme        HandleQuery
	GetNativeTransport          HandleQuery
	SendMsgToConnection         HandleArgOp
}

// SubscriptionOps are the subscription entry points.
type SubscriptionOps struct {
	Create              HandleNameOp
	CreateWildCard      HandleNameOp
	Mute                HandleOp
	Destroy             HandleOp
	IsValid             HandleQuery
	HasWildcards        HandleQuery
	GetPlatformError    HandleQuery
	SetTopicClosure     HandleArgOp
	IsTportDisconnected HandleQuery
}

// TimerOps are the timer entry points.
type TimerOps struct {
	Create      HandleArgOp
	Destroy     HandleOp
	Reset       HandleOp
	SetInterval HandleArgOp
	GetInterval HandleQuery
}

// PublisherOps are the publisher entry points.
type PublisherOps struct {
	CreateByIndex          HandleNameOp
	Destroy                HandleOp
	Send                   HandleArgOp
	SendReplyToInbox       HandleArgOp
	SendReplyToInboxHandle HandleArgOp
	SendFromInboxByIndex   HandleArgOp
	SetUserCallbacks       HandleArgOp
}

// InboxOps are the inbox entry points.
type InboxOps struct {
	Create        HandleArgOp
	CreateByIndex HandleArgOp
	Destroy       HandleOp
}

// MsgOps are the middleware-level message entry points.
type MsgOps struct {
	Create                     HandleArgOp
	Destroy                    HandleOp
	IsFromInbox                HandleQuery
	GetPlatformError           HandleQuery
	SetSendSubject             HandleNameOp
	GetNativeHandle            HandleQuery
	DuplicateReplyHandle       HandleArgOp
	CopyReplyHandle            HandleArgOp
	DestroyReplyHandle         HandleOp
	SetReplyHandle             HandleArgOp
	SetReplyHandleAndIncrement HandleArgOp
	GetReplyHandle             HandleQuery
}
