package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster is the worker's view of a client connection: pre-marshaled
// frames only, never shared state.
type Broadcaster interface {
	SendRaw(data []byte)    // JSON text frame
	SendBinary(data []byte) // msgpack binary frame
	WantsBinary() bool
}

// matchCmd is the closed set of messages a worker accepts. The coordinator
// and the worker share nothing else.
type matchCmd interface{ isMatchCmd() }

type cmdAddFighter struct{ userID int64 }
type cmdRemoveFighter struct{ userID int64 }
type cmdInputs struct {
	userID int64
	inputs KeyboardInputs
}
type cmdSubscribe struct {
	userID int64
	sink   Broadcaster
}
type cmdSnapshot struct{ reply chan GameData }

func (cmdAddFighter) isMatchCmd()    {}
func (cmdRemoveFighter) isMatchCmd() {}
func (cmdInputs) isMatchCmd()        {}
func (cmdSubscribe) isMatchCmd()     {}
func (cmdSnapshot) isMatchCmd()      {}

// matchWorker drives one match. It is the only goroutine that ever touches
// its Game, so the simulation itself needs no locking.
type matchWorker struct {
	game       *Game
	tickPeriod time.Duration
	inbox      chan matchCmd
	quit       chan struct{}
	stopOnce   sync.Once
	subs       map[int64]Broadcaster

	// OnDeath fires once per fighter death, from the worker goroutine.
	OnDeath func(userID int64)

	dead map[int64]bool
}

func newMatchWorker(game *Game, tickPeriod time.Duration) *matchWorker {
	return &matchWorker{
		game:       game,
		tickPeriod: tickPeriod,
		inbox:      make(chan matchCmd, 64),
		quit:       make(chan struct{}),
		subs:       make(map[int64]Broadcaster),
		dead:       make(map[int64]bool),
	}
}

// Run loops until Stop. Each tick applies buffered input, advances the
// simulation by the measured wall-clock delta, and pushes a full snapshot to
// every subscriber. Actions always land before the snapshot reflecting them.
func (w *matchWorker) Run() {
	ticker := time.NewTicker(w.tickPeriod)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-w.quit:
			return
		case cmd := <-w.inbox:
			w.handle(cmd)
		case now := <-ticker.C:
			deltaMs := float64(now.Sub(last)) / float64(time.Millisecond)
			last = now
			w.game.CreateFighterActions()
			w.game.Tick(deltaMs, now)
			w.reportDeaths()
			w.broadcast()
		}
	}
}

// Stop tears the worker down. In-flight ticks are not drained; only the
// timer and channels are released.
func (w *matchWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

func (w *matchWorker) handle(cmd matchCmd) {
	switch c := cmd.(type) {
	case cmdAddFighter:
		w.game.AddFighter(c.userID)
	case cmdRemoveFighter:
		w.game.RemoveFighter(c.userID)
		delete(w.subs, c.userID)
	case cmdInputs:
		w.game.SetUserInputs(c.userID, c.inputs)
	case cmdSubscribe:
		w.subs[c.userID] = c.sink
	case cmdSnapshot:
		c.reply <- w.game.Snapshot()
	}
}

func (w *matchWorker) reportDeaths() {
	if w.OnDeath == nil {
		return
	}
	for id, f := range w.game.fighters {
		if f.IsDead && !w.dead[id] {
			w.dead[id] = true
			w.OnDeath(id)
		}
	}
}

func (w *matchWorker) broadcast() {
	if len(w.subs) == 0 {
		return
	}
	msg := GameDataMsg{Event: EvtGameData, GameData: w.game.Snapshot()}

	var text, bin []byte
	for _, sink := range w.subs {
		if sink.WantsBinary() {
			if bin == nil {
				b, err := msgpack.Marshal(msg)
				if err != nil {
					continue
				}
				bin = b
			}
			sink.SendBinary(bin)
			continue
		}
		if text == nil {
			b, err := json.Marshal(msg)
			if err != nil {
				return
			}
			text = b
		}
		sink.SendRaw(text)
	}
}

// send delivers a command unless the worker is already stopped.
func (w *matchWorker) send(cmd matchCmd) {
	select {
	case w.inbox <- cmd:
	case <-w.quit:
	}
}

func (w *matchWorker) AddFighter(userID int64) { w.send(cmdAddFighter{userID: userID}) }

func (w *matchWorker) RemoveFighter(userID int64) { w.send(cmdRemoveFighter{userID: userID}) }

func (w *matchWorker) SetInputs(userID int64, inputs KeyboardInputs) {
	w.send(cmdInputs{userID: userID, inputs: inputs})
}

func (w *matchWorker) Subscribe(userID int64, sink Broadcaster) {
	w.send(cmdSubscribe{userID: userID, sink: sink})
}

// Snapshot synchronously fetches a full snapshot from the worker. Returns a
// zero snapshot if the worker stopped first.
func (w *matchWorker) Snapshot() GameData {
	reply := make(chan GameData, 1)
	select {
	case w.inbox <- cmdSnapshot{reply: reply}:
	case <-w.quit:
		return GameData{}
	}
	select {
	case snap := <-reply:
		return snap
	case <-w.quit:
		return GameData{}
	}
}
