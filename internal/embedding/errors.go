package embedding

import "fmt"

func wrapFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
}
