package event_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/pages-deploy-action/internal/event"
)

var _ = Describe("ParsePushEvent", func() {
	const sample = `{
		"ref": "refs/heads/main",
		"after": "4f2a6c1d",
		"repository": {
			"name": "site",
			"full_name": "rancher/site",
			"owner": {"login": "rancher", "name": "rancher"}
		},
		"pusher": {"name": "octocat", "email": "octocat@example.com"}
	}`

	It("parses the ref, head commit, repository and pusher", func() {
		payload, err := event.ParsePushEvent(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())
		Expect(payload.Ref).To(Equal("refs/heads/main"))
		Expect(payload.After).To(Equal("4f2a6c1d"))
		Expect(payload.Repository).To(Equal(event.Repository{Owner: "rancher", Name: "site"}))
		Expect(payload.Repository.FullName()).To(Equal("rancher/site"))
		Expect(payload.Pusher).To(Equal(event.Identity{Name: "octocat", Email: "octocat@example.com"}))
	})

	It("falls back to the full name when the owner is missing", func() {
		payload, err := event.ParsePushEvent(strings.NewReader(`{"repository": {"full_name": "rancher/docs"}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(payload.Repository.FullName()).To(Equal("rancher/docs"))
	})

	It("tolerates events without a pusher", func() {
		payload, err := event.ParsePushEvent(strings.NewReader(`{"ref": "refs/heads/main"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(payload.Pusher).To(Equal(event.Identity{}))
		Expect(payload.Repository.FullName()).To(BeEmpty())
	})

	It("returns an error for malformed payloads", func() {
		_, err := event.ParsePushEvent(strings.NewReader(`{"ref":`))
		Expect(err).To(HaveOccurred())
	})

	It("reads payloads from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "event.json")
		Expect(os.WriteFile(path, []byte(sample), 0o644)).To(Succeed())

		payload, err := event.ParsePushEventFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(payload.Pusher.Name).To(Equal("octocat"))
	})

	It("reports a missing file", func() {
		_, err := event.ParsePushEventFile(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})
