package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/throughcache"
)

// Ping asks the actor to answer for ID.
type Ping struct {
	ID int `json:"id" msgpack:"id" cbor:"1,keyasint"`
}

func (p Ping) CacheKey() (string, error) { return throughcache.Key("Ping", p.ID) }

// Pong is the actor's answer.
type Pong struct {
	ID       int       `json:"id" msgpack:"id" cbor:"1,keyasint"`
	Answered time.Time `json:"answered" msgpack:"answered" cbor:"2,keyasint"`
}

func (p Pong) String() string { return fmt.Sprintf("Pong(%d)", p.ID) }

var errActorStopped = errors.New("pingpong: actor stopped")

type envelope struct {
	ping  Ping
	reply chan Pong
}

// actor answers pings one at a time from its mailbox after delay.
type actor struct {
	mailbox chan envelope
	done    chan struct{}
	delay   time.Duration
	handled atomic.Int64
}

func startActor(delay time.Duration, mailboxSize int) *actor {
	a := &actor{
		mailbox: make(chan envelope, mailboxSize),
		done:    make(chan struct{}),
		delay:   delay,
	}
	go a.loop()
	return a
}

func (a *actor) loop() {
	for {
		select {
		case <-a.done:
			return
		case env := <-a.mailbox:
			select {
			case <-time.After(a.delay):
			case <-a.done:
				return
			}
			a.handled.Add(1)
			env.reply <- Pong{ID: env.ping.ID, Answered: time.Now().UTC()}
		}
	}
}

func (a *actor) stop() { close(a.done) }

// Handle sends p to the mailbox and waits for the reply.
func (a *actor) Handle(ctx context.Context, p Ping) (Pong, error) {
	env := envelope{ping: p, reply: make(chan Pong, 1)}
	select {
	case a.mailbox <- env:
	case <-a.done:
		return Pong{}, errActorStopped
	case <-ctx.Done():
		return Pong{}, ctx.Err()
	}
	select {
	case pong := <-env.reply:
		return pong, nil
	case <-a.done:
		return Pong{}, errActorStopped
	case <-ctx.Done():
		return Pong{}, ctx.Err()
	}
}

var _ throughcache.Upstream[Ping, Pong] = (*actor)(nil)
