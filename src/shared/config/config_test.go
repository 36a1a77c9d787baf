package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/urmt/STEM-SPLITTER/src/shared/config"
)

var _ = Describe("Config", func() {
	Describe("Default", func() {
		It("produces a valid config", func() {
			cfg := config.Default()
			Expect(cfg.Validate()).To(Succeed())
		})

		It("fills in the expected defaults", func() {
			cfg := config.Default()
			Expect(cfg.Port).To(Equal(":8080"))
			Expect(cfg.OutputRoot).To(Equal("static/outputs"))
			Expect(cfg.DemucsBin).To(Equal("demucs"))
			Expect(cfg.FFmpegBin).To(Equal("ffmpeg"))
			Expect(cfg.WorkerCount).To(Equal(2))
			Expect(cfg.QueueSize).To(Equal(64))
		})
	})

	Describe("FromTOMLFile", func() {
		var tempDir string

		writeConfig := func(contents string) string {
			path := filepath.Join(tempDir, "config.toml")
			err := os.WriteFile(path, []byte(contents), 0644)
			Expect(err).NotTo(HaveOccurred())
			return path
		}

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("overlays file values onto the base", func() {
			path := writeConfig(`
port = ":9090"
worker_count = 4
device = "cpu"
`)

			cfg, err := config.FromTOMLFile(path, config.Default())
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Port).To(Equal(":9090"))
			Expect(cfg.WorkerCount).To(Equal(4))
			Expect(cfg.Device).To(Equal("cpu"))
		})

		It("keeps base values for keys absent from the file", func() {
			path := writeConfig(`port = ":9090"`)

			cfg, err := config.FromTOMLFile(path, config.Default())
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.OutputRoot).To(Equal("static/outputs"))
			Expect(cfg.DemucsBin).To(Equal("demucs"))
			Expect(cfg.QueueSize).To(Equal(64))
		})

		It("rejects a file that produces an invalid config", func() {
			path := writeConfig(`worker_count = 0`)

			_, err := config.FromTOMLFile(path, config.Default())
			Expect(err).To(HaveOccurred())
		})

		It("rejects unparseable TOML", func() {
			path := writeConfig(`port = `)

			_, err := config.FromTOMLFile(path, config.Default())
			Expect(err).To(HaveOccurred())
		})

		It("errors when the file doesn't exist", func() {
			_, err := config.FromTOMLFile(filepath.Join(tempDir, "missing.toml"), config.Default())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		var cfg config.Config

		BeforeEach(func() {
			cfg = config.Default()
		})

		It("rejects an empty port", func() {
			cfg.Port = ""
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an empty output root", func() {
			cfg.OutputRoot = ""
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an unknown device", func() {
			cfg.Device = "tpu"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("accepts explicit cuda or cpu devices", func() {
			cfg.Device = "cuda"
			Expect(cfg.Validate()).To(Succeed())

			cfg.Device = "cpu"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects a non-positive worker count", func() {
			cfg.WorkerCount = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects a non-positive queue size", func() {
			cfg.QueueSize = -1
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
