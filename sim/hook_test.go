package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type callRecorder struct {
	name  string
	calls *[]string
}

func (r callRecorder) Func(ctx HookCtx) {
	*r.calls = append(*r.calls, r.name+":"+ctx.Pos.Name)
}

var _ = Describe("HookableBase", func() {
	It("should invoke hooks in registration order", func() {
		h := NewHookableBase()
		pos := &HookPos{Name: "Test"}
		calls := []string{}

		h.AcceptHook(callRecorder{name: "first", calls: &calls})
		h.AcceptHook(callRecorder{name: "second", calls: &calls})

		h.InvokeHook(HookCtx{Pos: pos})

		Expect(h.NumHooks()).To(Equal(2))
		Expect(calls).To(Equal([]string{"first:Test", "second:Test"}))
	})
})

var _ = Describe("IDGenerator", func() {
	It("should count sequentially", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should generate unique IDs", func() {
		g := NewUniqueIDGenerator()

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})
})
