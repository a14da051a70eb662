// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"github.com/holomush/bridgehost/pkg/bridge"
)

const (
	required = true
	optional = false
)

// Legacy allocator entry points.
const (
	legacyMiddlewareFunc = "Bridge_createImpl"
	legacyPayloadFunc    = "Payload_createImpl"
)

// Probe entry points used to classify libraries of unknown kind.
var probes = map[Kind][]string{
	KindMiddleware:  {"Bridge_open", legacyMiddlewareFunc},
	KindPayload:     {"Payload_create", legacyPayloadFunc},
	KindEntitlement: {"Entitlement_setup"},
	KindPlugin:      {"Plugin_initHook"},
}

// buildMiddleware binds a middleware dispatch table. A legacy allocator, when
// exported, is called once and only its state survives.
func buildMiddleware(b *Binder) (*bridge.Middleware, error) {
	t := &bridge.Middleware{}
	var legacy func() *bridge.LegacyMiddleware

	bind(b, &legacy, legacyMiddlewareFunc, optional)
	bind(b, &t.Init, "Bridge_init", optional)
	bind(b, &t.Open, "Bridge_open", required)
	bind(b, &t.Close, "Bridge_close", required)
	bind(b, &t.Start, "Bridge_start", required)
	bind(b, &t.Stop, "Bridge_stop", required)
	bind(b, &t.GetVersion, "Bridge_getVersion", required)
	bind(b, &t.GetName, "Bridge_getName", required)
	bind(b, &t.GetDefaultPayloadID, "Bridge_getDefaultPayloadId", optional)
	bind(b, &t.GetMinVersion, "Bridge_getMinVersion", optional)

	q := &t.Queue
	bind(b, &q.Create, "BridgeMamaQueue_create", required)
	bind(b, &q.CreateUsingNative, "BridgeMamaQueue_create_usingNative", optional)
	bind(b, &q.Destroy, "BridgeMamaQueue_destroy", required)
	bind(b, &q.GetEventCount, "BridgeMamaQueue_getEventCount", optional)
	bind(b, &q.Dispatch, "BridgeMamaQueue_dispatch", required)
	bind(b, &q.TimedDispatch, "BridgeMamaQueue_timedDispatch", optional)
	bind(b, &q.DispatchEvent, "BridgeMamaQueue_dispatchEvent", optional)
	bind(b, &q.EnqueueEvent, "BridgeMamaQueue_enqueueEvent", required)
	bind(b, &q.StopDispatch, "BridgeMamaQueue_stopDispatch", required)
	bind(b, &q.SetEnqueueCallback, "BridgeMamaQueue_setEnqueueCallback", optional)
	bind(b, &q.RemoveEnqueueCallback, "BridgeMamaQueue_removeEnqueueCallback", optional)
	bind(b, &q.GetNativeHandle, "BridgeMamaQueue_getNativeHandle", optional)
	bind(b, &q.SetHighWatermark, "BridgeMamaQueue_setHighWatermark", optional)
	bind(b, &q.SetLowWatermark, "BridgeMamaQueue_setLowWatermark", optional)

	tr := &t.Transport
	bind(b, &tr.Create, "BridgeMamaTransport_create", required)
	bind(b, &tr.Destroy, "BridgeMamaTransport_destroy", required)
	bind(b, &tr.IsValid, "BridgeMamaTransport_isValid", required)
	bind(b, &tr.ForceClientDisconnect, "BridgeMamaTransport_forceClientDisconnect", optional)
	bind(b, &tr.FindConnection, "BridgeMamaTransport_findConnection", optional)
	bind(b, &tr.GetAllConnections, "BridgeMamaTransport_getAllConnections", optional)
	bind(b, &tr.GetAllServerConnections, "BridgeMamaTransport_getAllServerConnections", optional)
	bind(b, &tr.RequestConflation, "BridgeMamaTransport_requestConflation", optional)
	bind(b, &tr.RequestEndOfConflation, "BridgeMamaTransport_requestEndOfConflation", optional)
	bind(b, &tr.GetNumLoadBalanceAttributes, "BridgeMamaTransport_getNumLoadBalanceAttributes", optional)
	bind(b, &tr.GetLoadBalanceScheme, "BridgeMamaTransport_getLoadBalanceScheme", optional)
	bind(b, &tr.GetNativeTransport, "BridgeMamaTransport_getNativeTransport", optional)
	bind(b, &tr.SendMsgToConnection, "BridgeMamaTransport_sendMsgToConnection", optional)

	s := &t.Subscription
	bind(b, &s.Create, "BridgeMamaSubscription_create", required)
	bind(b, &s.CreateWildCard, "BridgeMamaSubscription_createWildCard", optional)
	bind(b, &s.Mute, "BridgeMamaSubscription_mute", required)
	bind(b, &s.Destroy, "BridgeMamaSubscription_destroy", required)
	bind(b, &s.IsValid, "BridgeMamaSubscription_isValid", required)
	bind(b, &s.HasWildcards, "BridgeMamaSubscription_hasWildcards", optional)
	bind(b, &s.GetPlatformError, "BridgeMamaSubscription_getPlatformError", optional)
	bind(b, &s.SetTopicClosure, "BridgeMamaSubscription_setTopicClosure", optional)
	bind(b, &s.IsTportDisconnected, "BridgeMamaSubscription_isTportDisconnected", optional)

	tm := &t.Timer
	bind(b, &tm.Create, "BridgeMamaTimer_create", required)
	bind(b, &tm.Destroy, "BridgeMamaTimer_destroy", required)
	bind(b, &tm.Reset, "BridgeMamaTimer_reset", required)
	bind(b, &tm.SetInterval, "BridgeMamaTimer_setInterval", required)
	bind(b, &tm.GetInterval, "BridgeMamaTimer_getInterval", required)

	p := &t.Publisher
	bind(b, &p.CreateByIndex, "BridgeMamaPublisher_createByIndex", required)
	bind(b, &p.Destroy, "BridgeMamaPublisher_destroy", required)
	bind(b, &p.Send, "BridgeMamaPublisher_send", required)
	bind(b, &p.SendReplyToInbox, "BridgeMamaPublisher_sendReplyToInbox", optional)
	bind(b, &p.SendReplyToInboxHandle, "BridgeMamaPublisher_sendReplyToInboxHandle", optional)
	bind(b, &p.SendFromInboxByIndex, "BridgeMamaPublisher_sendFromInboxByIndex", optional)
	bind(b, &p.SetUserCallbacks, "BridgeMamaPublisher_setUserCallbacks", optional)

	in := &t.Inbox
	bind(b, &in.Create, "BridgeMamaInbox_create", optional)
	bind(b, &in.CreateByIndex, "BridgeMamaInbox_createByIndex", optional)
	bind(b, &in.Destroy, "BridgeMamaInbox_destroy", optional)

	m := &t.Msg
	bind(b, &m.Create, "BridgeMamaMsg_create", required)
	bind(b, &m.Destroy, "BridgeMamaMsg_destroy", required)
	bind(b, &m.IsFromInbox, "BridgeMamaMsg_isFromInbox", optional)
	bind(b, &m.GetPlatformError, "BridgeMamaMsg_getPlatformError", optional)
	bind(b, &m.SetSendSubject, "BridgeMamaMsg_setSendSubject", optional)
	bind(b, &m.GetNativeHandle, "BridgeMamaMsg_getNativeHandle", optional)
	bind(b, &m.DuplicateReplyHandle, "BridgeMamaMsg_duplicateReplyHandle", optional)
	bind(b, &m.CopyReplyHandle, "BridgeMamaMsg_copyReplyHandle", optional)
	bind(b, &m.DestroyReplyHandle, "BridgeMamaMsgImpl_destroyReplyHandle", optional)
	bind(b, &m.SetReplyHandle, "BridgeMamaMsgImpl_setReplyHandle", optional)
	bind(b, &m.SetReplyHandleAndIncrement, "BridgeMamaMsgImpl_setReplyHandleAndIncrement", optional)
	bind(b, &m.GetReplyHandle, "BridgeMamaMsgImpl_getReplyHandle", optional)

	if err := b.Err(); err != nil {
		return nil, err
	}
	if legacy != nil {
		t.State = bridge.AdoptLegacyMiddleware(legacy())
	}
	if err := b.checkVersion(t.GetMinVersion); err != nil {
		return nil, err
	}
	if err := b.call("Bridge_init", t.Init); err != nil {
		return nil, err
	}
	return t, nil
}

// buildPayload binds a payload dispatch table.
func buildPayload(b *Binder) (*bridge.Payload, error) {
	t := &bridge.Payload{}
	var legacy func() *bridge.LegacyPayload

	bind(b, &legacy, legacyPayloadFunc, optional)
	bind(b, &t.Init, "Payload_init", optional)
	bind(b, &t.GetType, "Payload_getType", optional)
	bind(b, &t.Create, "Payload_create", required)
	bind(b, &t.CreateForTemplate, "Payload_createForTemplate", optional)
	bind(b, &t.CreateFromByteBuffer, "Payload_createFromByteBuffer", optional)
	bind(b, &t.Copy, "Payload_copy", required)
	bind(b, &t.Clear, "Payload_clear", required)
	bind(b, &t.Destroy, "Payload_destroy", required)
	bind(b, &t.SetParent, "Payload_setParent", optional)
	bind(b, &t.GetByteSize, "Payload_getByteSize", optional)
	bind(b, &t.GetNumFields, "Payload_getNumFields", optional)
	bind(b, &t.GetSendSubject, "Payload_getSendSubject", optional)
	bind(b, &t.ToString, "Payload_toString", optional)
	bind(b, &t.IterateFields, "Payload_iterateFields", optional)
	bind(b, &t.Serialize, "Payload_serialize", optional)
	bind(b, &t.UnSerialize, "Payload_unSerialize", optional)
	bind(b, &t.GetByteBuffer, "Payload_getByteBuffer", required)
	bind(b, &t.SetByteBuffer, "Payload_setByteBuffer", required)
	bind(b, &t.Apply, "Payload_apply", optional)
	bind(b, &t.GetNativeMsg, "Payload_getNativeMsg", optional)
	bind(b, &t.GetFieldAsString, "Payload_getFieldAsString", optional)
	bind(b, &t.AddString, "Payload_addString", optional)
	bind(b, &t.UpdateString, "Payload_updateString", optional)
	bind(b, &t.GetString, "Payload_getString", optional)
	bind(b, &t.RemoveField, "Payload_removeField", optional)

	f := &t.Field
	bind(b, &f.Create, "FieldPayload_create", optional)
	bind(b, &f.Destroy, "FieldPayload_destroy", optional)
	bind(b, &f.GetType, "FieldPayload_getType", optional)
	bind(b, &f.GetName, "FieldPayload_getName", optional)
	bind(b, &f.GetFid, "FieldPayload_getFid", optional)
	bind(b, &f.GetString, "FieldPayload_getString", optional)
	bind(b, &f.UpdateString, "FieldPayload_updateString", optional)

	it := &t.Iter
	bind(b, &it.Create, "PayloadIter_create", optional)
	bind(b, &it.Destroy, "PayloadIter_destroy", optional)
	bind(b, &it.Begin, "PayloadIter_begin", optional)
	bind(b, &it.Next, "PayloadIter_next", optional)
	bind(b, &it.HasNext, "PayloadIter_hasNext", optional)
	bind(b, &it.Associate, "PayloadIter_associate", optional)

	if err := b.Err(); err != nil {
		return nil, err
	}
	if legacy != nil {
		t.State = bridge.AdoptLegacyPayload(legacy())
	}
	if err := b.checkVersion(nil); err != nil {
		return nil, err
	}
	if err := b.call("Payload_init", t.Init); err != nil {
		return nil, err
	}
	return t, nil
}

// buildEntitlement binds an entitlement dispatch table. Setup is left to
// activation.
func buildEntitlement(b *Binder) (*bridge.Entitlement, error) {
	t := &bridge.Entitlement{}

	bind(b, &t.Setup, "Entitlement_setup", required)
	bind(b, &t.TearDown, "Entitlement_tearDown", required)
	bind(b, &t.CreateSubscription, "Entitlement_createSubscription", optional)
	bind(b, &t.DestroySubscription, "Entitlement_destroySubscription", optional)
	bind(b, &t.SetSubscriptionType, "Entitlement_setSubscriptionType", optional)
	bind(b, &t.HandleNewSubscription, "Entitlement_handleNewSubscription", optional)
	bind(b, &t.IsAllowed, "Entitlement_isAllowed", required)
	bind(b, &t.RegisterSubjectContext, "Entitlement_registerSubjectContext", optional)

	if err := b.Err(); err != nil {
		return nil, err
	}
	if err := b.checkVersion(nil); err != nil {
		return nil, err
	}
	return t, nil
}

// buildPlugin binds a plugin dispatch table.
func buildPlugin(b *Binder) (*bridge.Plugin, error) {
	t := &bridge.Plugin{}

	bind(b, &t.InitHook, "Plugin_initHook", required)
	bind(b, &t.ShutdownHook, "Plugin_shutdownHook", optional)
	bind(b, &t.PublisherPrePublishHook, "Plugin_publisherPrePublishHook", optional)
	bind(b, &t.TransportPostCreateHook, "Plugin_transportPostCreateHook", optional)
	bind(b, &t.TransportEventHook, "Plugin_transportEventHook", optional)
	bind(b, &t.SubscriptionPostCreateHook, "Plugin_subscriptionPostCreateHook", optional)
	bind(b, &t.SubscriptionPreMsgHook, "Plugin_subscriptionPreMsgHook", optional)

	if err := b.Err(); err != nil {
		return nil, err
	}
	if err := b.checkVersion(nil); err != nil {
		return nil, err
	}
	return t, nil
}
