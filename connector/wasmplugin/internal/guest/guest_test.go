package guest

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestEncodeULEB128(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		if got := EncodeULEB128(tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeULEB128(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}
}

func TestEncodeSLEB128(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, tt := range tests {
		if got := EncodeSLEB128(tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeSLEB128(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}
}

func TestConnectorCompiles(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	signals := 0
	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(context.Context, api.Module, []uint64) {
			signals++
		}), nil, nil).
		Export(HostDisconnected).
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("host module: %v", err)
	}

	mod, err := rt.Instantiate(ctx, Connector(Behavior{Init: true, Accept: true, Signals: 2}))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	for _, name := range []string{ExportAlloc, ExportInit, ExportConnect, ExportDisconnect} {
		if mod.ExportedFunction(name) == nil {
			t.Errorf("missing export %q", name)
		}
	}
	if mod.Memory() == nil {
		t.Fatal("missing memory")
	}

	first, err := mod.ExportedFunction(ExportAlloc).Call(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := mod.ExportedFunction(ExportAlloc).Call(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != 1024 || second[0] != 1029 {
		t.Errorf("alloc = %d, %d", first[0], second[0])
	}

	res, err := mod.ExportedFunction(ExportConnect).Call(ctx, make([]uint64, ConnectParams)...)
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != 1 || signals != 2 {
		t.Errorf("connect = %d, signals = %d", res[0], signals)
	}
}
