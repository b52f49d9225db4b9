package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseResolve,
				Kind:    KindIncompleteTable,
				Subject: "locale",
				Detail:  "no permutation",
			},
			contains: []string{"[resolve]", "incomplete_table", "for locale", "no permutation"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHandshake,
				Kind:  KindPluginAbsent,
			},
			contains: []string{"[handshake]", "plugin_absent"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInstantiation,
				Detail: "compile module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "instantiation", "compile module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseConfig,
		Kind:  KindConfigParse,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:   PhaseRegister,
		Kind:    KindDuplicate,
		Subject: "locale",
	}

	if !err.Is(&Error{Phase: PhaseRegister, Kind: KindDuplicate}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindDuplicate}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRegister, Kind: KindNotFound}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseRegister, Kind: KindDuplicate}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseInvoke, KindArity).
		Subject("dispatch 7").
		Value(3).
		Cause(cause).
		Detail("expected %d args, got %d", 2, 3).
		Build()

	if err.Phase != PhaseInvoke {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseInvoke)
	}
	if err.Kind != KindArity {
		t.Errorf("Kind = %v, want %v", err.Kind, KindArity)
	}
	if err.Subject != "dispatch 7" {
		t.Errorf("Subject = %q", err.Subject)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected 2 args, got 3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestPropertyError(t *testing.T) {
	err := &PropertyError{Name: "user.agent", Value: "edge", Allowed: []string{"gecko", "webkit"}}

	msg := err.Error()
	for _, s := range []string{"user.agent", `"edge"`, "gecko, webkit"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}

	wrapped := fmt.Errorf("bootstrap: %w", err)
	if !errors.Is(wrapped, &PropertyError{}) {
		t.Error("errors.Is should match PropertyError")
	}
	if !IsPropertyResolution(wrapped) {
		t.Error("IsPropertyResolution should see through wrapping")
	}
	if IsConnectionRefused(wrapped) {
		t.Error("PropertyError is not a connection refusal")
	}
}

func TestConnectionError(t *testing.T) {
	cause := errors.New("refused")
	err := &ConnectionError{CodeServer: "localhost:9997", Module: "hello", Connector: "object", Cause: cause}

	msg := err.Error()
	for _, s := range []string{"localhost:9997", "object", "hello"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("ConnectionError should unwrap to its cause")
	}
	if !IsConnectionRefused(err) {
		t.Error("IsConnectionRefused should match")
	}
	if IsPluginAbsent(err) {
		t.Error("refusal is not absence")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseResolve, "property", "locale")
		if err.Kind != KindNotFound || err.Subject != "locale" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate(PhaseRegister, "property", "locale")
		if err.Kind != KindDuplicate {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("IncompleteTable", func(t *testing.T) {
		err := IncompleteTable([]string{"gecko", "fr"})
		if err.Kind != KindIncompleteTable {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "gecko, fr") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("PluginAbsent", func(t *testing.T) {
		err := PluginAbsent("hello")
		if !IsPluginAbsent(err) {
			t.Error("IsPluginAbsent should match")
		}
		if IsConfigParse(err) {
			t.Error("absence is not a config parse error")
		}
	})

	t.Run("UnexpectedDisconnect", func(t *testing.T) {
		err := UnexpectedDisconnect("abc")
		if err.Phase != PhaseSession || err.Kind != KindDisconnected {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("ConfigParse", func(t *testing.T) {
		err := ConfigParse("gwt:onLoadErrorFn", "missing", errors.New("unbound"))
		if !IsConfigParse(fmt.Errorf("wrap: %w", err)) {
			t.Error("IsConfigParse should see through wrapping")
		}
		if err.Value != "missing" {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("InvalidState", func(t *testing.T) {
		err := InvalidState(PhaseSession, "idle", "connected")
		if !strings.Contains(err.Error(), "idle to connected") {
			t.Errorf("message = %q", err.Error())
		}
	})
}
