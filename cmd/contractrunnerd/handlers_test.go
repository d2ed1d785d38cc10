package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/guard"
	"github.com/neil-the-nowledgeable/contextcore/pkg/observability"
)

func TestContractRunnerD(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "contractrunnerd Ops HTTP Surface Suite")
}

var _ = Describe("/healthz", func() {
	It("always reports ok", func() {
		reg := newRegistry()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		newRouter(reg).ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("/score", func() {
	It("returns 400 with no pipeline_id", func() {
		reg := newRegistry()
		req := httptest.NewRequest(http.MethodGet, "/score", nil)
		rr := httptest.NewRecorder()
		newRouter(reg).ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 404 for an unrecorded pipeline", func() {
		reg := newRegistry()
		req := httptest.NewRequest(http.MethodGet, "/score?pipeline_id=unknown", nil)
		rr := httptest.NewRecorder()
		newRouter(reg).ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusNotFound))
	})

	It("returns the recorded scores for a known pipeline", func() {
		reg := newRegistry()
		reg.Record("my-pipe", runRecord{
			Summary: guard.WorkflowRunSummary{PipelineID: "my-pipe", Passed: true},
			Scores:  observability.Scores{Overall: 97.5},
		})

		req := httptest.NewRequest(http.MethodGet, "/score?pipeline_id=my-pipe", nil)
		rr := httptest.NewRecorder()
		newRouter(reg).ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusOK))

		var scores observability.Scores
		Expect(json.NewDecoder(rr.Body).Decode(&scores)).To(Succeed())
		Expect(scores.Overall).To(Equal(97.5))
	})
})

var _ = Describe("/gate", func() {
	It("returns 404 when no gate result has been recorded", func() {
		reg := newRegistry()
		reg.Record("my-pipe", runRecord{})
		req := httptest.NewRequest(http.MethodGet, "/gate?pipeline_id=my-pipe", nil)
		rr := httptest.NewRecorder()
		newRouter(reg).ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusNotFound))
	})
})
