// SPDX-License-Identifier: MIT
package strutil_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitpost/internal/strutil"
)

var _ = DescribeTable("SplitCSV",
	func(raw string, want []string) {
		Expect(strutil.SplitCSV(raw)).To(Equal(want))
	},
	Entry("plain fields", "a,b,c", []string{"a", "b", "c"}),
	Entry("trims whitespace", "  a , b ", []string{"a", "b"}),
	Entry("drops empty fields", "a,,b,", []string{"a", "b"}),
	Entry("empty input", "", nil),
	Entry("only separators", " , , ", nil),
)
