// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"sync"

	"github.com/holomush/bridgehost/pkg/bridge"
	"github.com/holomush/bridgehost/pkg/bridgesdk"
)

const (
	name    = "loopback"
	version = "1.0.0"

	// queueDepth bounds the events a queue holds before enqueue fails.
	queueDepth = 1024
)

type queue struct {
	events chan uintptr
	// dispatching is closed to end the running dispatch, nil when idle.
	dispatching chan struct{}
	dispatched  int
}

func (q *queue) stopDispatch() {
	if q.dispatching != nil {
		close(q.dispatching)
		q.dispatching = nil
	}
}

type subscription struct {
	topic    string
	muted    bool
	received int
}

// loopback keeps every bridge object in memory, keyed by the handle the
// host allocated for it.
type loopback struct {
	mu sync.Mutex

	running chan struct{}

	queues     map[bridge.Handle]*queue
	transports map[bridge.Handle]string
	subs       map[bridge.Handle]*subscription
	timers     map[bridge.Handle]uintptr
	publishers map[bridge.Handle]string
	msgs       map[bridge.Handle]string
}

func newLoopback() *loopback {
	return &loopback{
		queues:     make(map[bridge.Handle]*queue),
		transports: make(map[bridge.Handle]string),
		subs:       make(map[bridge.Handle]*subscription),
		timers:     make(map[bridge.Handle]uintptr),
		publishers: make(map[bridge.Handle]string),
		msgs:       make(map[bridge.Handle]string),
	}
}

// exports returns the bridge's symbols under the library prefix p.
func (l *loopback) exports(p string) bridgesdk.Exports {
	return bridgesdk.Exports{
		p + "Bridge_open":                bridge.Op(l.open),
		p + "Bridge_close":               bridge.Op(l.close),
		p + "Bridge_start":               bridge.Op(l.start),
		p + "Bridge_stop":                bridge.Op(l.stop),
		p + "Bridge_getName":             bridge.StringOp(func() string { return name }),
		p + "Bridge_getVersion":          bridge.StringOp(func() string { return version }),
		p + "Bridge_getDefaultPayloadId": bridge.StringOp(func() string { return "" }),

		p + "BridgeMamaQueue_create":        bridge.HandleArgOp(l.queueCreate),
		p + "BridgeMamaQueue_destroy":       bridge.HandleOp(l.queueDestroy),
		p + "BridgeMamaQueue_getEventCount": bridge.HandleQuery(l.queueEventCount),
		p + "BridgeMamaQueue_dispatch":      bridge.HandleOp(l.queueDispatch),
		p + "BridgeMamaQueue_enqueueEvent":  bridge.HandleArgOp(l.queueEnqueue),
		p + "BridgeMamaQueue_stopDispatch":  bridge.HandleOp(l.queueStopDispatch),

		p + "BridgeMamaTransport_create":  bridge.HandleNameOp(l.transportCreate),
		p + "BridgeMamaTransport_destroy": bridge.HandleOp(l.transportDestroy),
		p + "BridgeMamaTransport_isValid": bridge.HandleQuery(l.transportIsValid),

		p + "BridgeMamaSubscription_create":  bridge.HandleNameOp(l.subscriptionCreate),
		p + "BridgeMamaSubscription_mute":    bridge.HandleOp(l.subscriptionMute),
		p + "BridgeMamaSubscription_destroy": bridge.HandleOp(l.subscriptionDestroy),
		p + "BridgeMamaSubscription_isValid": bridge.HandleQuery(l.subscriptionIsValid),

		p + "BridgeMamaTimer_create":      bridge.HandleArgOp(l.timerCreate),
		p + "BridgeMamaTimer_destroy":     bridge.HandleOp(l.timerDestroy),
		p + "BridgeMamaTimer_reset":       bridge.HandleOp(l.timerReset),
		p + "BridgeMamaTimer_setInterval": bridge.HandleArgOp(l.timerSetInterval),
		p + "BridgeMamaTimer_getInterval": bridge.HandleQuery(l.timerInterval),

		p + "BridgeMamaPublisher_createByIndex": bridge.HandleNameOp(l.publisherCreate),
		p + "BridgeMamaPublisher_destroy":       bridge.HandleOp(l.publisherDestroy),
		p + "BridgeMamaPublisher_send":          bridge.HandleArgOp(l.publisherSend),

		p + "BridgeMamaMsg_create":         bridge.HandleArgOp(l.msgCreate),
		p + "BridgeMamaMsg_destroy":        bridge.HandleOp(l.msgDestroy),
		p + "BridgeMamaMsg_setSendSubject": bridge.HandleNameOp(l.msgSetSubject),
	}
}

func (l *loopback) open() bridge.Status { return bridge.StatusOK }

// close drops every object the host left behind.
func (l *loopback) close() bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.queues {
		q.stopDispatch()
	}
	clear(l.queues)
	clear(l.transports)
	clear(l.subs)
	clear(l.timers)
	clear(l.publishers)
	clear(l.msgs)
	return bridge.StatusOK
}

// start blocks until stop, like the dispatch thread of a real transport.
func (l *loopback) start() bridge.Status {
	l.mu.Lock()
	if l.running != nil {
		l.mu.Unlock()
		return bridge.StatusOK
	}
	running := make(chan struct{})
	l.running = running
	l.mu.Unlock()
	<-running
	return bridge.StatusOK
}

func (l *loopback) stop() bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running != nil {
		close(l.running)
		l.running = nil
	}
	return bridge.StatusOK
}

func (l *loopback) queueCreate(h bridge.Handle, _ uintptr) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 {
		return bridge.StatusNullArg
	}
	if _, ok := l.queues[h]; ok {
		return bridge.StatusDuplicateID
	}
	l.queues[h] = &queue{events: make(chan uintptr, queueDepth)}
	return bridge.StatusOK
}

func (l *loopback) queue(h bridge.Handle) (*queue, bridge.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.queues[h]
	if !ok {
		return nil, bridge.StatusInvalidQueue
	}
	return q, bridge.StatusOK
}

func (l *loopback) queueDestroy(h bridge.Handle) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.queues[h]
	if !ok {
		return bridge.StatusInvalidQueue
	}
	q.stopDispatch()
	delete(l.queues, h)
	return bridge.StatusOK
}

func (l *loopback) queueEventCount(h bridge.Handle) uintptr {
	q, status := l.queue(h)
	if !status.OK() {
		return 0
	}
	return uintptr(len(q.events))
}

// queueDispatch runs events until the queue is stopped or destroyed. Only
// one dispatch may run per queue.
func (l *loopback) queueDispatch(h bridge.Handle) bridge.Status {
	l.mu.Lock()
	q, ok := l.queues[h]
	if !ok {
		l.mu.Unlock()
		return bridge.StatusInvalidQueue
	}
	if q.dispatching != nil {
		l.mu.Unlock()
		return bridge.StatusPlatform
	}
	done := make(chan struct{})
	q.dispatching = done
	l.mu.Unlock()

	for {
		select {
		case <-q.events:
			l.mu.Lock()
			q.dispatched++
			l.mu.Unlock()
		case <-done:
			return bridge.StatusOK
		}
	}
}

func (l *loopback) queueEnqueue(h bridge.Handle, event uintptr) bridge.Status {
	q, status := l.queue(h)
	if !status.OK() {
		return status
	}
	select {
	case q.events <- event:
		return bridge.StatusOK
	default:
		return bridge.StatusResourceExhausted
	}
}

// queueStopDispatch ends a running dispatch. The queue stays usable.
func (l *loopback) queueStopDispatch(h bridge.Handle) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.queues[h]
	if !ok {
		return bridge.StatusInvalidQueue
	}
	q.stopDispatch()
	return bridge.StatusOK
}

func (l *loopback) transportCreate(h bridge.Handle, tport string) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 || tport == "" {
		return bridge.StatusInvalidArg
	}
	l.transports[h] = tport
	return bridge.StatusOK
}

func (l *loopback) transportDestroy(h bridge.Handle) bridge.Status {
	return remove(&l.mu, l.transports, h)
}

func (l *loopback) transportIsValid(h bridge.Handle) uintptr {
	return exists(&l.mu, l.transports, h)
}

func (l *loopback) subscriptionCreate(h bridge.Handle, topic string) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 || topic == "" {
		return bridge.StatusInvalidArg
	}
	l.subs[h] = &subscription{topic: topic}
	return bridge.StatusOK
}

func (l *loopback) subscriptionMute(h bridge.Handle) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.subs[h]
	if !ok {
		return bridge.StatusNotFound
	}
	s.muted = true
	return bridge.StatusOK
}

func (l *loopback) subscriptionDestroy(h bridge.Handle) bridge.Status {
	return remove(&l.mu, l.subs, h)
}

func (l *loopback) subscriptionIsValid(h bridge.Handle) uintptr {
	return exists(&l.mu, l.subs, h)
}

func (l *loopback) timerCreate(h bridge.Handle, interval uintptr) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 || interval == 0 {
		return bridge.StatusInvalidArg
	}
	l.timers[h] = interval
	return bridge.StatusOK
}

func (l *loopback) timerDestroy(h bridge.Handle) bridge.Status {
	return remove(&l.mu, l.timers, h)
}

func (l *loopback) timerReset(h bridge.Handle) bridge.Status {
	if exists(&l.mu, l.timers, h) == 0 {
		return bridge.StatusNotFound
	}
	return bridge.StatusOK
}

func (l *loopback) timerSetInterval(h bridge.Handle, interval uintptr) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.timers[h]; !ok {
		return bridge.StatusNotFound
	}
	if interval == 0 {
		return bridge.StatusInvalidArg
	}
	l.timers[h] = interval
	return bridge.StatusOK
}

func (l *loopback) timerInterval(h bridge.Handle) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timers[h]
}

func (l *loopback) publisherCreate(h bridge.Handle, topic string) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 || topic == "" {
		return bridge.StatusInvalidArg
	}
	l.publishers[h] = topic
	return bridge.StatusOK
}

func (l *loopback) publisherDestroy(h bridge.Handle) bridge.Status {
	return remove(&l.mu, l.publishers, h)
}

// publisherSend delivers msg to every unmuted subscription on the
// publisher's topic, or on the message's own subject when it has one.
func (l *loopback) publisherSend(h bridge.Handle, msg uintptr) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	topic, ok := l.publishers[h]
	if !ok {
		return bridge.StatusNotFound
	}
	subject, ok := l.msgs[bridge.Handle(msg)]
	if !ok {
		return bridge.StatusInvalidArg
	}
	if subject != "" {
		topic = subject
	}
	for _, s := range l.subs {
		if s.topic == topic && !s.muted {
			s.received++
		}
	}
	return bridge.StatusOK
}

func (l *loopback) msgCreate(h bridge.Handle, _ uintptr) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == 0 {
		return bridge.StatusNullArg
	}
	l.msgs[h] = ""
	return bridge.StatusOK
}

func (l *loopback) msgDestroy(h bridge.Handle) bridge.Status {
	return remove(&l.mu, l.msgs, h)
}

func (l *loopback) msgSetSubject(h bridge.Handle, subject string) bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.msgs[h]; !ok {
		return bridge.StatusNotFound
	}
	l.msgs[h] = subject
	return bridge.StatusOK
}

// dispatched reports how many events the queue has run.
func (l *loopback) dispatched(h bridge.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q, ok := l.queues[h]; ok {
		return q.dispatched
	}
	return 0
}

// received reports how many messages the subscription was delivered.
func (l *loopback) received(h bridge.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.subs[h]; ok {
		return s.received
	}
	return 0
}

func remove[V any](mu *sync.Mutex, m map[bridge.Handle]V, h bridge.Handle) bridge.Status {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := m[h]; !ok {
		return bridge.StatusNotFound
	}
	delete(m, h)
	return bridge.StatusOK
}

func exists[V any](mu *sync.Mutex, m map[bridge.Handle]V, h bridge.Handle) uintptr {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := m[h]; ok {
		return 1
	}
	return 0
}
