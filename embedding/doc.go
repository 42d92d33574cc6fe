// Package embedding turns chunk text into unit vectors.
//
// A Client wraps an ai.Embedder with the behavior the provider needs from
// its callers: inputs are truncated to the model's token limit, grouped into
// bounded sub-batches, paced by a shared Budget, and retried with
// exponential backoff on transient failures. Outcomes are reported as a
// Result value rather than a bare error so that callers can keep the
// vectors that were produced before a failure.
//
// # Rate budget
//
// One Budget is created per process and handed to every Client:
//
//	budget := embedding.NewBudget(embedding.BudgetConfig{
//	    RequestsPerMinute: 3000,
//	    TokensPerMinute:   1_000_000,
//	})
//	client, err := embedding.NewClient(provider.Embedder(), budget)
//
// Callers block on the budget instead of failing. When the provider still
// answers with a rate-limit error, the budget is paused for everybody.
//
// # Vectors
//
// Returned vectors are L2-normalized, so cosine similarity between two of
// them is their dot product.
package embedding
