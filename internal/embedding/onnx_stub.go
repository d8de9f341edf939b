//go:build !cgo

package embedding

import "fmt"

func newONNXEmbedder(modelPath string, _, _ int) (Embedder, error) {
	return nil, fmt.Errorf("%w: onnx provider for %s needs a cgo build with onnxruntime", ErrEmbeddingFailure, modelPath)
}
