package demucs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/cerr"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/executor"
	modelentity "github.com/urmt/STEM-SPLITTER/src/shared/model/entity"
	modelregistry "github.com/urmt/STEM-SPLITTER/src/shared/model/registry"
)

const modelSampleRate = 44100

var (
	deviceOnce     sync.Once
	detectedDevice string
)

// Device picks the compute device for separation once per process:
// cuda when the NVIDIA driver tooling is visible, cpu otherwise.
func Device() string {
	deviceOnce.Do(func() {
		if _, err := exec.LookPath("nvidia-smi"); err == nil {
			detectedDevice = "cuda"
		} else {
			detectedDevice = "cpu"
		}

		log.WithField("device", detectedDevice).Info("Using device")
	})

	return detectedDevice
}

var _ modelregistry.Loader = Loader{}

// Loader materializes demucs model variants. The pretrained model is an
// external collaborator consumed through its CLI; loading verifies the
// binary and resolves the variant's catalog metadata.
type Loader struct {
	binPath  string
	device   string
	workDir  string
	engine   audioio.Engine
	executor executor.Executor
}

func NewLoader(binPath string, device string, workDir string, engine audioio.Engine, exec executor.Executor) Loader {
	if device == "" {
		device = Device()
	}

	return Loader{
		binPath:  binPath,
		device:   device,
		workDir:  workDir,
		engine:   engine,
		executor: exec,
	}
}

func (l Loader) LoadModel(name string) (modelentity.Model, error) {
	sources, err := modelentity.SourceNames(name)
	if err != nil {
		return nil, cerr.Field("model", name).
			Wrap(err).Error("Requested model is not in the catalog")
	}

	if err := l.verifyBin(); err != nil {
		return nil, cerr.Field("demucs_bin_path", l.binPath).
			Wrap(err).Error("The demucs binary is not usable")
	}

	return Model{
		name:     name,
		sources:  sources,
		binPath:  l.binPath,
		device:   l.device,
		workDir:  l.workDir,
		engine:   l.engine,
		executor: l.executor,
	}, nil
}

func (l Loader) verifyBin() error {
	if strings.ContainsRune(l.binPath, os.PathSeparator) {
		_, err := os.Stat(l.binPath)
		return err
	}

	_, err := exec.LookPath(l.binPath)
	return err
}

var _ modelentity.Model = Model{}

type Model struct {
	name     string
	sources  []string
	binPath  string
	device   string
	workDir  string
	engine   audioio.Engine
	executor executor.Executor
}

func (m Model) Name() string {
	return m.name
}

func (m Model) Sources() []string {
	sources := make([]string, len(m.sources))
	copy(sources, m.sources)
	return sources
}

func (m Model) SampleRate() int {
	return modelSampleRate
}

func (m Model) Separate(ctx context.Context, batch audioio.Batch) ([]audioio.Waveform, error) {
	if len(batch.Mixes) != 1 {
		return nil, cerr.Field("batch_size", len(batch.Mixes)).
			Error("Expected a single item batch")
	}

	// separation is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return nil, cerr.Wrap(ctx.Err()).Error("Context cancelled before separation could happen")
	}

	runDir, err := os.MkdirTemp(m.workDir, "demucs-run")
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to create a working dir for separation")
	}
	defer func() {
		_ = os.RemoveAll(runDir)
	}()

	mixPath := filepath.Join(runDir, "mix.wav")
	if err := m.engine.Save(batch.Mixes[0], mixPath); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to write the mix for separation")
	}

	stemsDir := filepath.Join(runDir, "separated")
	if err := m.runDemucs(mixPath, stemsDir); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to execute demucs")
	}

	return m.collectStems(stemsDir)
}

func (m Model) runDemucs(mixPath string, stemsDir string) error {
	logger := log.WithFields(log.Fields{
		"model":    m.name,
		"mixPath":  mixPath,
		"stemsDir": stemsDir,
		"device":   m.device,
	})

	logger.Info("Running demucs command")

	args := []string{"-n", m.name, "-o", stemsDir, "-d", m.device, "--filename", "{stem}.{ext}", mixPath}

	errctx := cerr.Field("demucs_bin_path", m.binPath).Field("demucs_args", args)

	cmd := m.executor.Command(m.binPath, args...)
	cmd.SetDir(filepath.Dir(mixPath))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return errctx.Field("demucs_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running demucs: %s", string(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished demucs command")

	return nil
}

func (m Model) collectStems(stemsDir string) ([]audioio.Waveform, error) {
	stemPaths := map[string]string{}

	err := filepath.WalkDir(stemsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fileName := d.Name()
		stemName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		stemPaths[stemName] = path
		return nil
	})
	if err != nil {
		return nil, cerr.Field("stems_dir", stemsDir).
			Wrap(err).Error("Failed to read the separation output directory")
	}

	waves := make([]audioio.Waveform, 0, len(m.sources))
	for _, source := range m.sources {
		stemPath, ok := stemPaths[source]
		if !ok {
			return nil, cerr.Field("stem", source).
				Error("demucs did not produce the expected stem")
		}

		wave, err := m.engine.Load(stemPath)
		if err != nil {
			return nil, cerr.Field("stem", source).
				Wrap(err).Error("Failed to read a separated stem")
		}

		waves = append(waves, wave)
	}

	return waves, nil
}
