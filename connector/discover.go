package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/session"
)

// Discoverer tries finders in order and connects the first usable candidate.
type Discoverer struct {
	finders []Finder
}

// NewDiscoverer creates a discoverer. With no finders it uses DefaultFinders.
func NewDiscoverer(finders ...Finder) *Discoverer {
	if len(finders) == 0 {
		finders = DefaultFinders()
	}
	return &Discoverer{finders: finders}
}

// Finders returns the probing order.
func (d *Discoverer) Finders() []Finder {
	out := make([]Finder, len(d.finders))
	copy(out, d.finders)
	return out
}

// Connect runs discovery and the handshake for sess.
//
// On success the connector is attached to sess and returned. A candidate
// whose Connect returns false stops probing with a *errors.ConnectionError
// carrying the code server address. When no candidate is usable the error
// satisfies errors.IsPluginAbsent. sess ends Connected or Failed.
func (d *Discoverer) Connect(ctx context.Context, doc Document, host Host, sess *session.Session, req ConnectRequest) (Connector, error) {
	if err := sess.Transition(session.StatusProbing); err != nil {
		return nil, err
	}
	if req.ProtocolVersion == "" {
		req.ProtocolVersion = ProtocolVersion
	}
	if req.SessionID == "" {
		req.SessionID = sess.ID()
	}

	log := Logger().With(
		zap.String("module", req.Module),
		zap.String("session", sess.ID()),
		zap.String("code_server", req.CodeServer))

	for _, f := range d.finders {
		outcome, c := d.attempt(ctx, f, doc, host, req)
		switch outcome {
		case outcomeAbsent:
			log.Debug("connector absent", zap.Stringer("connector", f.Kind()))
			continue
		case outcomeRefused:
			log.Warn("connector refused connection", zap.Stringer("connector", f.Kind()))
			_ = sess.Transition(session.StatusFailed)
			return nil, &errors.ConnectionError{
				CodeServer: req.CodeServer,
				Module:     req.Module,
				Connector:  f.Kind().String(),
			}
		case outcomeConnected:
			if err := sess.Attach(f.Kind().String(), c); err != nil {
				return nil, err
			}
			log.Info("connected to code server", zap.Stringer("connector", f.Kind()))
			return c, nil
		}
	}

	_ = sess.Transition(session.StatusFailed)
	return nil, errors.PluginAbsent(req.Module)
}

type outcome uint8

const (
	outcomeAbsent outcome = iota
	outcomeRefused
	outcomeConnected
)

// attempt tries one candidate. Any panic or error is reported as absence.
func (d *Discoverer) attempt(ctx context.Context, f Finder, doc Document, host Host, req ConnectRequest) (result outcome, c Connector) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Debug("connector attempt panicked",
				zap.Stringer("connector", f.Kind()),
				zap.String("panic", fmt.Sprint(r)))
			result, c = outcomeAbsent, nil
		}
	}()

	c, ok := f.Find(doc)
	if !ok {
		return outcomeAbsent, nil
	}
	ok, err := c.Init(ctx, host)
	if err != nil || !ok {
		return outcomeAbsent, nil
	}
	ok, err = c.Connect(ctx, req)
	if err != nil {
		return outcomeAbsent, nil
	}
	if !ok {
		return outcomeRefused, nil
	}
	return outcomeConnected, c
}
