// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build integration

package addons_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module/moduletest"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
)

const (
	eventually = 5 * time.Second
	poll       = 20 * time.Millisecond
)

var _ = Describe("Addon hot-reload", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	AfterEach(func() {
		env.stop()
	})

	Describe("discovery", func() {
		It("loads an addon dropped into the directory", func() {
			path := env.drop("foo.dll", "foo-v1", moduletest.Spec{Definitions: moduletest.Def(1, "Foo", 1)})

			Eventually(env.stateOf(path), eventually, poll).Should(Equal(addon.StateLoaded))

			cfg, err := addon.ReadConfig(env.stateDir + "/" + addon.ConfigFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(ContainElement(HaveField("Signature", int32(1))))
		})

		It("rejects a second addon with the same signature", func() {
			foo := env.drop("foo.dll", "foo", moduletest.Spec{Definitions: moduletest.Def(9, "Foo", 1)})
			Eventually(env.stateOf(foo), eventually, poll).Should(Equal(addon.StateLoaded))

			bar := env.drop("bar.dll", "bar", moduletest.Spec{Definitions: moduletest.Def(9, "Bar", 1)})
			Eventually(env.stateOf(bar), eventually, poll).Should(Equal(addon.StateNotLoadedDuplicate))
			Consistently(env.stateOf(foo), 200*time.Millisecond, poll).Should(Equal(addon.StateLoaded))
		})
	})

	Describe("updates", func() {
		It("swaps in a staged build and reloads it", func() {
			path := env.drop("foo.dll", "foo-v1", moduletest.Spec{Definitions: moduletest.Def(1, "Foo", 1)})
			Eventually(env.stateOf(path), eventually, poll).Should(Equal(addon.StateLoaded))

			env.drop("foo.dll"+update.UpdateSuffix, "foo-v2", moduletest.Spec{Definitions: moduletest.Def(1, "Foo", 2)})

			Eventually(func() string {
				info, err := env.loader.Addon(path)
				if err != nil || info.State != addon.StateLoaded {
					return ""
				}
				return info.Version
			}, eventually, poll).Should(Equal("2.0.0.0"))
			Expect(env.opener.Opened(path)).To(HaveLen(2))
			Expect(env.opener.Opened(path)[0].Closed()).To(BeTrue())
		})
	})

	Describe("unloading", func() {
		It("unloads an addon whose file disappears and scrubs its callbacks", func() {
			rng := module.Range{Base: 0x10000, End: 0x20000}
			path := env.drop("foo.dll", "foo", moduletest.Spec{
				Definitions: moduletest.Def(1, "Foo", 1),
				Range:       rng,
				OnLoad: func(tbl capability.Table) {
					v3 := tbl.(*capability.V3Table)
					v3.SubscribeEvent("EV_MUMBLE", 0x10010)
					v3.RegisterKeybind("KB_FOO", "CTRL+F", 0x10020)
				},
			})
			Eventually(env.stateOf(path), eventually, poll).Should(Equal(addon.StateLoaded))
			Expect(env.bus.Subscribers("EV_MUMBLE")).To(ConsistOf(uintptr(0x10010)))
			Expect(env.loader.OwnerOf(0x10010)).To(Equal(int32(1)))

			Expect(os.Remove(path)).To(Succeed())

			Eventually(env.tracked(path), eventually, poll).Should(BeFalse())
			Expect(env.bus.Subscribers("EV_MUMBLE")).To(BeEmpty())
			Expect(env.opener.Last(path).Closed()).To(BeTrue())
		})

		It("renames a loaded addon aside on uninstall and deletes it later", func() {
			path := env.drop("foo.dll", "foo", moduletest.Spec{Definitions: moduletest.Def(1, "Foo", 1)})
			Eventually(env.stateOf(path), eventually, poll).Should(Equal(addon.StateLoaded))

			Expect(env.loader.Uninstall(path)).To(Succeed())

			Eventually(env.tracked(path), eventually, poll).Should(BeFalse())
			Eventually(func() bool {
				_, err := os.Stat(path + addon.UninstallSuffix)
				return os.IsNotExist(err)
			}, eventually, poll).Should(BeTrue())
			Expect(path).NotTo(BeAnExistingFile())
		})

		It("keeps a locked addon loaded and remembers the disable request", func() {
			def := moduletest.Def(4, "Locked", 1)
			def.HasUnload = false
			path := env.drop("locked.dll", "locked", moduletest.Spec{Definitions: def})
			Eventually(env.stateOf(path), eventually, poll).Should(Equal(addon.StateLoadedLocked))

			Expect(env.loader.Disable(path)).To(Succeed())

			Eventually(func() bool {
				info, err := env.loader.Addon(path)
				return err == nil && info.IsFlaggedForDisable
			}, eventually, poll).Should(BeTrue())
			Expect(env.stateOf(path)()).To(Equal(addon.StateLoadedLocked))
		})
	})
})
