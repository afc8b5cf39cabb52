package refname_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/pages-deploy-action/internal/refname"
)

var _ = Describe("Refname", func() {
	Describe("Normalize", func() {
		It("strips refs/heads prefixes and surrounding slashes", func() {
			Expect(refname.Normalize(" refs/heads/gh-pages ")).To(Equal("gh-pages"))
			Expect(refname.Normalize("REFS/HEADS/docs/site/")).To(Equal("docs/site"))
			Expect(refname.Normalize("/main/")).To(Equal("main"))
		})

		It("returns an empty string for blank input", func() {
			Expect(refname.Normalize("  /  ")).To(BeEmpty())
		})

		DescribeTable("returns an empty string for a bare heads prefix",
			func(branch string) {
				Expect(refname.Normalize(branch)).To(BeEmpty())
			},
			Entry("trailing slash", "refs/heads/"),
			Entry("doubled slash", "refs/heads//"),
			Entry("no slash", "refs/heads"),
			Entry("surrounded", " /REFS/HEADS/ "),
		)

		It("keeps names that only start like the prefix", func() {
			Expect(refname.Normalize("refs/headsup")).To(Equal("refs/headsup"))
		})
	})

	Describe("Validate", func() {
		DescribeTable("accepts ordinary branch names",
			func(branch string) {
				Expect(refname.Validate(branch)).To(Succeed())
			},
			Entry("gh-pages", "gh-pages"),
			Entry("nested", "release/v2.1"),
			Entry("underscore", "site_preview"),
		)

		DescribeTable("rejects names git would refuse",
			func(branch string) {
				Expect(refname.Validate(branch)).NotTo(Succeed())
			},
			Entry("empty", ""),
			Entry("whitespace", "gh pages"),
			Entry("double dot", "gh..pages"),
			Entry("colon", "main:gh-pages"),
			Entry("reflog syntax", "main@{1}"),
			Entry("option-like", "--force"),
			Entry("lock suffix", "gh-pages.lock"),
			Entry("hidden segment", "docs/.site"),
		)
	})

	Describe("Parse", func() {
		It("normalizes before validating", func() {
			branch, err := refname.Parse("refs/heads/gh-pages")
			Expect(err).NotTo(HaveOccurred())
			Expect(branch).To(Equal("gh-pages"))
		})

		It("rejects a bare heads prefix instead of deploying to it", func() {
			_, err := refname.Parse("refs/heads/")
			Expect(err).To(MatchError(ContainSubstring("empty")))
		})

		It("returns an error for invalid names", func() {
			_, err := refname.Parse("refs/heads/bad name")
			Expect(err).To(HaveOccurred())
		})
	})
})
