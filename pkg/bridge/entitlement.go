// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

// Entitlement is the dispatch table of an access control bridge.
type Entitlement struct {
	Setup    Op
	TearDown Op

	CreateSubscription     HandleOp
	DestroySubscription    HandleOp
	SetSubscriptionType    HandleArgOp
	HandleNewSubscription  HandleOp
	IsAllowed              HandleNameOp
	RegisterSubjectContext HandleNameOp
}

// Plugin is the dispatch table of an extension bridge. Every hook is
// optional except InitHook.
type Plugin struct {
	InitHook                   Op
	ShutdownHook               Op
	PublisherPrePublishHook    HandleArgOp
	TransportPostCreateHook    HandleOp
	TransportEventHook         HandleArgOp
	SubscriptionPostCreateHook HandleOp
	SubscriptionPreMsgHook     HandleArgOp
}
