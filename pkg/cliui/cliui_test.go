package cliui_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/papercomputeco/devcoach/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds under a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds with one decimal otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("returns the success mark for nil", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		})

		It("returns the fail mark for errors", func() {
			Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Step", func() {
		It("prints the message and passes the error through", func() {
			out := gbytes.NewBuffer()
			err := cliui.Step(out, "Connecting to relay", func() error {
				return errors.New("refused")
			})
			Expect(err).To(MatchError("refused"))
			Expect(out).To(gbytes.Say("Connecting to relay"))
		})
	})

	Describe("RenderMarkdownStyled", func() {
		It("renders markdown text", func() {
			out, err := cliui.RenderMarkdownStyled("**Practice** system design", 60, "notty")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Practice"))
			Expect(out).To(ContainSubstring("system design"))
		})
	})
})
