package modelregistry_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	modelregistry "github.com/urmt/STEM-SPLITTER/src/shared/model/registry"
	"github.com/urmt/STEM-SPLITTER/src/shared/testing/dummy"
)

var _ = Describe("Registry", func() {
	var (
		loader   *dummy.Loader
		registry *modelregistry.Registry
	)

	BeforeEach(func() {
		loader = dummy.NewLoader(
			dummy.NewModel("htdemucs", []string{"drums", "bass", "other", "vocals"}, 44100),
			dummy.NewModel("htdemucs_6s", []string{"drums", "bass", "other", "vocals", "guitar", "piano"}, 44100),
		)
		registry = modelregistry.NewRegistry(loader)
	})

	It("loads a model on first request", func() {
		model, err := registry.Get("htdemucs")
		Expect(err).NotTo(HaveOccurred())
		Expect(model.Name()).To(Equal("htdemucs"))
		Expect(loader.LoadCalls()).To(Equal(1))
	})

	It("serves repeat requests from the cache", func() {
		first, err := registry.Get("htdemucs")
		Expect(err).NotTo(HaveOccurred())

		second, err := registry.Get("htdemucs")
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(BeIdenticalTo(first))
		Expect(loader.LoadCalls()).To(Equal(1))
	})

	It("loads each model name independently", func() {
		_, err := registry.Get("htdemucs")
		Expect(err).NotTo(HaveOccurred())

		_, err = registry.Get("htdemucs_6s")
		Expect(err).NotTo(HaveOccurred())

		Expect(loader.LoadCalls()).To(Equal(2))
	})

	It("propagates loader failures without caching them", func() {
		_, err := registry.Get("unknown_model")
		Expect(err).To(HaveOccurred())

		_, err = registry.Get("unknown_model")
		Expect(err).To(HaveOccurred())

		Expect(loader.LoadCalls()).To(Equal(2))
	})

	It("loads once under concurrent cold start requests", func() {
		release := make(chan struct{})
		loader.LoadDelay = release

		results := make([]error, 5)
		wg := sync.WaitGroup{}
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()

				_, err := registry.Get("htdemucs")
				results[i] = err
			}(i)
		}

		close(release)
		wg.Wait()

		for _, err := range results {
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(loader.LoadCalls()).To(Equal(1))
	})
})
