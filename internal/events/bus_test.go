// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RaidcoreGG/Nexus-sub000/internal/events"
)

type delivery struct {
	callback uintptr
	payload  uintptr
}

func newRecordingBus() (*events.Bus, *[]delivery) {
	var got []delivery
	bus := events.NewBus(events.WithInvoker(func(cb, payload uintptr) {
		got = append(got, delivery{cb, payload})
	}))
	return bus, &got
}

func TestRaiseDeliversToSubscribers(t *testing.T) {
	bus, got := newRecordingBus()
	bus.Subscribe("EV_MUMBLE", 0x100)
	bus.Subscribe("EV_MUMBLE", 0x200)
	bus.Subscribe("EV_MUMBLE", 0x100)
	bus.Subscribe("EV_OTHER", 0x300)

	bus.Raise("EV_MUMBLE", 7)

	assert.Equal(t, []delivery{{0x100, 7}, {0x200, 7}}, *got)
	assert.Equal(t, []string{"EV_MUMBLE", "EV_OTHER"}, bus.Events())
}

func TestUnsubscribe(t *testing.T) {
	bus, got := newRecordingBus()
	bus.Subscribe("EV", 0x100)
	bus.Subscribe("EV", 0x200)

	bus.Unsubscribe("EV", 0x100)
	bus.Raise("EV", 1)
	assert.Equal(t, []delivery{{0x200, 1}}, *got)

	bus.Unsubscribe("EV", 0x200)
	assert.Empty(t, bus.Events())
}

func TestRaiseTargeted(t *testing.T) {
	bus, got := newRecordingBus()
	bus.Subscribe("EV", 0x1100)
	bus.Subscribe("EV", 0x2100)

	bus.RaiseTargeted(1, "EV", 5)
	assert.Empty(t, *got, "no resolver means nothing is delivered")

	bus.SetOwnerResolver(func(addr uintptr) int32 {
		if addr >= 0x1000 && addr < 0x2000 {
			return 1
		}
		return 2
	})
	bus.RaiseTargeted(2, "EV", 5)
	assert.Equal(t, []delivery{{0x2100, 5}}, *got)
}

func TestVerifyNoReferencesIn(t *testing.T) {
	bus, _ := newRecordingBus()
	bus.Subscribe("EV_A", 0x1100)
	bus.Subscribe("EV_A", 0x3000)
	bus.Subscribe("EV_B", 0x1200)

	removed := bus.VerifyNoReferencesIn(0x1000, 0x2000)

	assert.Equal(t, 2, removed)
	assert.Equal(t, []uintptr{0x3000}, bus.Subscribers("EV_A"))
	assert.Empty(t, bus.Subscribers("EV_B"))
	assert.Equal(t, []string{"EV_A"}, bus.Events())
	assert.Zero(t, bus.VerifyNoReferencesIn(0x1000, 0x2000))
}
