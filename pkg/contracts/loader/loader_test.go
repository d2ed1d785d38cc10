package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts/loader"
)

func TestLoader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Contract Loader Suite")
}

const minimalPropagationYAML = `
schema_version: "0.1.0"
contract_type: context_propagation
pipeline_id: my-pipe
phases:
  plan:
    exit:
      required:
        - {name: domain, type: str, severity: blocking}
  build:
    entry:
      enrichment:
        - {name: domain, type: str, severity: warning, default: unknown}
propagation_chains:
  - {chain_id: d, source: {phase: plan, field: domain}, destination: {phase: build, field: domain}, severity: warning}
`

var _ = Describe("Loader", func() {
	It("parses a minimal propagation contract from a string", func() {
		l := loader.New[contracts.ContextContract]("context_propagation")
		c, err := l.LoadFromString(minimalPropagationYAML)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.PipelineID).To(Equal("my-pipe"))
		Expect(c.Phases).To(HaveKey("plan"))
		Expect(c.PropagationChains).To(HaveLen(1))
	})

	It("rejects unknown top-level keys", func() {
		l := loader.New[contracts.ContextContract]("context_propagation")
		_, err := l.LoadFromString(minimalPropagationYAML + "\nbogus_key: true\n")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a contract missing required shape fields", func() {
		l := loader.New[contracts.ContextContract]("context_propagation")
		_, err := l.LoadFromString(`
schema_version: "0.1.0"
contract_type: context_propagation
phases: {}
`)
		Expect(err).To(HaveOccurred())
	})

	It("memoises Load by absolute path and returns the identical value until cleared", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "contract.yaml")
		Expect(os.WriteFile(path, []byte(minimalPropagationYAML), 0o644)).To(Succeed())

		l := loader.New[contracts.ContextContract]("context_propagation")
		first, err := l.Load(path)
		Expect(err).NotTo(HaveOccurred())
		second, err := l.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeIdenticalTo(second))

		l.ClearCache()
		third, err := l.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(third).NotTo(BeIdenticalTo(first))
		Expect(*third).To(Equal(*first))
	})

	It("reports a distinct not-found error for a missing file", func() {
		l := loader.New[contracts.ContextContract]("context_propagation")
		_, err := l.Load("/nonexistent/path/contract.yaml")
		Expect(err).To(HaveOccurred())
		Expect(loader.IsNotFound(err)).To(BeTrue())
	})
})
