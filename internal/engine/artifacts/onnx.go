package artifacts

import (
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/blotter/internal/model"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect, so every later library path is ignored.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNX runs a category model exported to ONNX. The graph must take one float
// tensor [batch, N] and produce a probability tensor [batch, K]; classifiers
// exported with a zipmap output are not supported.
type ONNX struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inDim      int64
	classes    []string
}

// LoadONNX creates an inference session for the model at path. inputName and
// outputName may be empty to take the graph's first input and the output
// named "probabilities" (or its last output when there is no such name).
func LoadONNX(path, libPath, inputName, outputName string, classes []string) (*ONNX, error) {
	fail := func(err error) (*ONNX, error) {
		return nil, &model.ArtifactError{Artifact: "model", Path: path, Err: err}
	}

	if err := initORT(libPath); err != nil {
		return fail(fmt.Errorf("onnx: initialize runtime from %s: %w", libPath, err))
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return fail(fmt.Errorf("onnx: read model info: %w", err))
	}

	in, err := pickTensor(inputs, inputName, "")
	if err != nil {
		return fail(fmt.Errorf("onnx: input: %w", err))
	}
	out, err := pickTensor(outputs, outputName, "probabilities")
	if err != nil {
		return fail(fmt.Errorf("onnx: output: %w", err))
	}

	if len(in.Dimensions) != 2 || in.Dimensions[1] <= 0 {
		return fail(fmt.Errorf("onnx: input %s must be [batch, N] with fixed N, got %v", in.Name, in.Dimensions))
	}
	if len(out.Dimensions) != 2 {
		return fail(fmt.Errorf("onnx: output %s must be [batch, K], got %v", out.Name, out.Dimensions))
	}
	if k := out.Dimensions[1]; k > 0 && int(k) != len(classes) {
		return fail(fmt.Errorf("onnx: output %s has %d columns for %d classes", out.Name, k, len(classes)))
	}
	if len(classes) == 0 {
		return fail(fmt.Errorf("onnx: no class labels"))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fail(fmt.Errorf("onnx: create session options: %w", err))
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return fail(fmt.Errorf("onnx: create session: %w", err))
	}

	return &ONNX{
		session:    session,
		inputName:  in.Name,
		outputName: out.Name,
		inDim:      in.Dimensions[1],
		classes:    slices.Clone(classes),
	}, nil
}

// pickTensor returns the tensor called name, or the fallback name, or the
// first (inputs) / last (outputs) tensor when neither is set.
func pickTensor(infos []ort.InputOutputInfo, name, fallback string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("model declares none")
	}
	if name != "" {
		for _, info := range infos {
			if info.Name == name {
				return info, nil
			}
		}
		return ort.InputOutputInfo{}, fmt.Errorf("no tensor named %q", name)
	}
	if fallback != "" {
		for _, info := range infos {
			if info.Name == fallback {
				return info, nil
			}
		}
		return infos[len(infos)-1], nil
	}
	return infos[0], nil
}

func (m *ONNX) InputDim() int     { return int(m.inDim) }
func (m *ONNX) Classes() []string { return slices.Clone(m.classes) }

// Predict runs one inference call for a single feature vector.
func (m *ONNX) Predict(vec []float32) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("onnx: session closed")
	}

	tIn, err := ort.NewTensor(ort.NewShape(1, m.inDim), vec)
	if err != nil {
		return nil, fmt.Errorf("onnx: create %s tensor: %w", m.inputName, err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(m.classes))))
	if err != nil {
		return nil, fmt.Errorf("onnx: create %s tensor: %w", m.outputName, err)
	}
	defer tOut.Destroy()

	if err := m.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before the tensor is destroyed.
	src := tOut.GetData()
	probs := make([]float64, len(src))
	for i, p := range src {
		probs[i] = float64(p)
	}
	return probs, nil
}

// Close releases the ONNX session.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
