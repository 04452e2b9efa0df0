package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})
})

var _ = Describe("MaskSecret", func() {
	It("returns empty for an empty secret", func() {
		Expect(MaskSecret("")).To(BeEmpty())
	})

	It("fully masks short secrets", func() {
		Expect(MaskSecret("abcd1234")).To(Equal("********"))
	})

	It("keeps the first and last four characters", func() {
		Expect(MaskSecret("sk-or-v1-abcdef123456")).To(Equal("sk-o****3456"))
	})
})
