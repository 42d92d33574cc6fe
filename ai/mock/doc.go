// Package mock provides test doubles for the ai service interfaces.
//
// The mocks let pipeline, retrieval and CLI tests run without a model
// endpoint. Each mock has deterministic default behavior and exposes
// function hooks for injecting failures.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "lithium plating")
//
//	// Fail every third batch with a transient error
//	embedder := mock.NewMockEmbedder(8)
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    if embedder.CallCount()%3 == 0 {
//	        return nil, core.ErrProviderUnavailable
//	    }
//	    return embedder.Vectors(texts), nil
//	}
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockGenerator: echoes the question and the number of passages
//   - MockProvider: aggregates one of each
package mock
