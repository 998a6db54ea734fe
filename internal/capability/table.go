// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package capability

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
)

// Version identifies a capability table layout.
type Version uint32

// Known table versions.
const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3

	Latest = V3
)

// Known reports whether v is a version the host can build.
func (v Version) Known() bool {
	return v >= V1 && v <= Latest
}

// Table is a capability table of one specific version.
type Table interface {
	Version() Version

	layout() []any
	cell() *nativeCell
}

// nativeCell holds the C-layout rendition of a table once it is built.
type nativeCell struct {
	once  sync.Once
	words []uintptr
}

// api forwards table calls to host services.
type api struct {
	svc    Services
	logger *slog.Logger
}

func (a *api) missing(fn string) {
	a.logger.Debug("capability service unavailable", "function", fn)
}

// V1Table is the first table layout: logging, events, keybinds,
// shared resources and render callbacks.
type V1Table struct {
	api    *api
	native nativeCell
}

// Version returns V1.
func (t *V1Table) Version() Version { return V1 }

// Log writes an addon log line on the named channel.
func (t *V1Table) Log(level LogLevel, channel, message string) {
	if level == LogOff {
		return
	}
	t.api.logger.Log(context.Background(), level.SlogLevel(), message, "channel", channel)
}

// RaiseEvent raises name for every subscriber.
func (t *V1Table) RaiseEvent(name string, payload uintptr) {
	if t.api.svc.Events == nil {
		t.api.missing("RaiseEvent")
		return
	}
	t.api.svc.Events.Raise(name, payload)
}

// SubscribeEvent registers callback for name.
func (t *V1Table) SubscribeEvent(name string, callback uintptr) {
	if t.api.svc.Events == nil {
		t.api.missing("SubscribeEvent")
		return
	}
	t.api.svc.Events.Subscribe(name, callback)
}

// UnsubscribeEvent removes callback from name.
func (t *V1Table) UnsubscribeEvent(name string, callback uintptr) {
	if t.api.svc.Events == nil {
		t.api.missing("UnsubscribeEvent")
		return
	}
	t.api.svc.Events.Unsubscribe(name, callback)
}

// RegisterKeybind registers handler under id with the default bind.
func (t *V1Table) RegisterKeybind(id, bind string, handler uintptr) {
	if t.api.svc.Keybinds == nil {
		t.api.missing("RegisterKeybind")
		return
	}
	if err := t.api.svc.Keybinds.Register(id, bind, handler); err != nil {
		t.api.logger.Warn("keybind registration rejected", "id", id, "bind", bind, "error", err)
	}
}

// DeregisterKeybind removes the keybind with id.
func (t *V1Table) DeregisterKeybind(id string) {
	if t.api.svc.Keybinds == nil {
		t.api.missing("DeregisterKeybind")
		return
	}
	t.api.svc.Keybinds.Deregister(id)
}

// ShareResource publishes ptr under name.
func (t *V1Table) ShareResource(name string, ptr uintptr) {
	if t.api.svc.Resources == nil {
		t.api.missing("ShareResource")
		return
	}
	t.api.svc.Resources.Share(name, ptr)
}

// GetResource returns the pointer shared under name, or zero.
func (t *V1Table) GetResource(name string) uintptr {
	if t.api.svc.Resources == nil {
		t.api.missing("GetResource")
		return 0
	}
	return t.api.svc.Resources.Get(name)
}

// RegisterRender attaches callback to a render pass.
func (t *V1Table) RegisterRender(kind RenderKind, callback uintptr) {
	if t.api.svc.Render == nil {
		t.api.missing("RegisterRender")
		return
	}
	t.api.svc.Render.Register(kind, callback)
}

// DeregisterRender detaches callback from every render pass.
func (t *V1Table) DeregisterRender(callback uintptr) {
	if t.api.svc.Render == nil {
		t.api.missing("DeregisterRender")
		return
	}
	t.api.svc.Render.Deregister(callback)
}

func (t *V1Table) cell() *nativeCell { return &t.native }

func (t *V1Table) layout() []any {
	return []any{
		func(level, channel, message uintptr) uintptr {
			t.Log(LogLevel(int32(level)), cabi.GoString(channel), cabi.GoString(message))
			return 0
		},
		func(name, payload uintptr) uintptr {
			t.RaiseEvent(cabi.GoString(name), payload)
			return 0
		},
		func(name, callback uintptr) uintptr {
			t.SubscribeEvent(cabi.GoString(name), callback)
			return 0
		},
		func(name, callback uintptr) uintptr {
			t.UnsubscribeEvent(cabi.GoString(name), callback)
			return 0
		},
		func(id, bind, handler uintptr) uintptr {
			t.RegisterKeybind(cabi.GoString(id), cabi.GoString(bind), handler)
			return 0
		},
		func(id uintptr) uintptr {
			t.DeregisterKeybind(cabi.GoString(id))
			return 0
		},
		func(name, ptr uintptr) uintptr {
			t.ShareResource(cabi.GoString(name), ptr)
			return 0
		},
		func(name uintptr) uintptr {
			return t.GetResource(cabi.GoString(name))
		},
		func(kind, callback uintptr) uintptr {
			t.RegisterRender(RenderKind(int32(kind)), callback)
			return 0
		},
		func(callback uintptr) uintptr {
			t.DeregisterRender(callback)
			return 0
		},
	}
}

// V2Table adds targeted events, raw input callbacks and resource removal.
type V2Table struct {
	V1Table
}

// Version returns V2.
func (t *V2Table) Version() Version { return V2 }

// RaiseEventTargeted raises name only for subscribers owned by signature.
func (t *V2Table) RaiseEventTargeted(signature int32, name string, payload uintptr) {
	if t.api.svc.Events == nil {
		t.api.missing("RaiseEventTargeted")
		return
	}
	t.api.svc.Events.RaiseTargeted(signature, name, payload)
}

// RegisterInput attaches a raw input callback.
func (t *V2Table) RegisterInput(callback uintptr) {
	if t.api.svc.Render == nil {
		t.api.missing("RegisterInput")
		return
	}
	t.api.svc.Render.RegisterInput(callback)
}

// DeregisterInput detaches a raw input callback.
func (t *V2Table) DeregisterInput(callback uintptr) {
	if t.api.svc.Render == nil {
		t.api.missing("DeregisterInput")
		return
	}
	t.api.svc.Render.DeregisterInput(callback)
}

// RemoveResource withdraws the resource shared under name.
func (t *V2Table) RemoveResource(name string) {
	if t.api.svc.Resources == nil {
		t.api.missing("RemoveResource")
		return
	}
	t.api.svc.Resources.Remove(name)
}

func (t *V2Table) layout() []any {
	return append(t.V1Table.layout(),
		func(signature, name, payload uintptr) uintptr {
			t.RaiseEventTargeted(int32(signature), cabi.GoString(name), payload)
			return 0
		},
		func(callback uintptr) uintptr {
			t.RegisterInput(callback)
			return 0
		},
		func(callback uintptr) uintptr {
			t.DeregisterInput(callback)
			return 0
		},
		func(name uintptr) uintptr {
			t.RemoveResource(cabi.GoString(name))
			return 0
		},
	)
}

// V3Table adds packet transmission and a writable packet handler slot.
// The slot is cleared each time the table is handed to an addon.
type V3Table struct {
	V2Table
	handler atomic.Uintptr
}

// Version returns V3.
func (t *V3Table) Version() Version { return V3 }

// SendPacket transmits payload to target. It reports false when no
// network service is configured or the send failed.
func (t *V3Table) SendPacket(target string, payload []byte) bool {
	if t.api.svc.Network == nil {
		t.api.missing("SendPacket")
		return false
	}
	return t.api.svc.Network.Send(target, payload)
}

// PacketHandler returns the handler an addon stored in the table.
func (t *V3Table) PacketHandler() uintptr {
	if slot := t.handlerSlot(); slot != nil {
		return atomic.LoadUintptr(slot)
	}
	return t.handler.Load()
}

// SetPacketHandler stores a packet handler as an addon would.
func (t *V3Table) SetPacketHandler(handler uintptr) {
	t.handler.Store(handler)
	if slot := t.handlerSlot(); slot != nil {
		atomic.StoreUintptr(slot, handler)
	}
}

func (t *V3Table) resetPacketHandler() {
	t.SetPacketHandler(0)
}

// handlerSlot points at the data slot in the native layout, if built.
func (t *V3Table) handlerSlot() *uintptr {
	words := t.native.words
	if len(words) == 0 {
		return nil
	}
	return &words[len(words)-1]
}

func (t *V3Table) layout() []any {
	return append(t.V2Table.layout(),
		func(target, data, size uintptr) uintptr {
			return cabi.FromBool(t.SendPacket(cabi.GoString(target), cabi.GoBytes(data, int(size))))
		},
		nil, // packet handler slot, written by the addon
	)
}

var (
	_ Table = (*V1Table)(nil)
	_ Table = (*V2Table)(nil)
	_ Table = (*V3Table)(nil)
)
