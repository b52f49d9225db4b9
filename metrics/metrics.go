// Package metrics emits the lightweight startup events a host page may
// collect through an optional sink.
package metrics

import (
	"time"

	"go.uber.org/zap"
)

// Fixed event coordinates used by the loader.
const (
	SubSystemStartup   = "startup"
	GroupModuleStartup = "moduleStartup"
	GroupBootstrap     = "bootstrap"

	TypeModuleEvalStart   = "moduleEvalStart"
	TypeModuleEvalEnd     = "moduleEvalEnd"
	TypeOnModuleLoadStart = "onModuleLoadStart"

	TypeBootstrap            = "bootstrap"
	TypeSelectingPermutation = "selectingPermutation"
	TypeEnd                  = "end"
)

// SessionGlobal names the page global holding the metrics session id.
const SessionGlobal = "__gwtStatsSessionId"

// Event is one fire-and-forget record.
type Event struct {
	ModuleName string `json:"moduleName"`
	SessionID  string `json:"sessionId,omitempty"`
	SubSystem  string `json:"subSystem"`
	EvtGroup   string `json:"evtGroup"`
	Type       string `json:"type"`
	ClassName  string `json:"className,omitempty"`
	Millis     int64  `json:"millis"`
}

// Sink receives events. A nil Sink drops them.
type Sink func(Event)

// Emitter stamps events for one module.
type Emitter struct {
	sink      Sink
	now       func() time.Time
	module    string
	sessionID string
}

// NewEmitter creates an emitter. sink may be nil.
func NewEmitter(sink Sink, module, sessionID string) *Emitter {
	return &Emitter{
		sink:      sink,
		now:       time.Now,
		module:    module,
		sessionID: sessionID,
	}
}

// WithClock replaces the time source.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Enabled reports whether a sink is attached.
func (e *Emitter) Enabled() bool {
	return e != nil && e.sink != nil
}

// Startup emits a moduleStartup event of the given type.
func (e *Emitter) Startup(typ string) {
	e.emit(GroupModuleStartup, typ, "")
}

// Bootstrap emits a bootstrap event of the given type from the selection
// script.
func (e *Emitter) Bootstrap(typ string) {
	e.emit(GroupBootstrap, typ, "")
}

// ModuleLoadStart emits onModuleLoadStart for the entry point class.
func (e *Emitter) ModuleLoadStart(className string) {
	e.emit(GroupModuleStartup, TypeOnModuleLoadStart, className)
}

func (e *Emitter) emit(group, typ, className string) {
	if !e.Enabled() {
		return
	}
	e.sink(Event{
		ModuleName: e.module,
		SessionID:  e.sessionID,
		SubSystem:  SubSystemStartup,
		EvtGroup:   group,
		Type:       typ,
		ClassName:  className,
		Millis:     e.now().UnixMilli(),
	})
}

// ZapSink logs events at debug level.
func ZapSink(l *zap.Logger) Sink {
	return func(ev Event) {
		l.Debug("startup event",
			zap.String("module", ev.ModuleName),
			zap.String("session", ev.SessionID),
			zap.String("sub_system", ev.SubSystem),
			zap.String("evt_group", ev.EvtGroup),
			zap.String("type", ev.Type),
			zap.String("class_name", ev.ClassName),
			zap.Int64("millis", ev.Millis))
	}
}

// Tee fans events out to several sinks, skipping nil ones.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return func(ev Event) {
		for _, s := range live {
			s(ev)
		}
	}
}
