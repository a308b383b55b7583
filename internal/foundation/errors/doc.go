// Package errors provides classified error primitives used across doctopics.
//
// A ClassifiedError carries a category (catalog, registration, graph, link,
// conversion, ...), a severity, a retry strategy, and a structured context
// map. Errors are created with the fluent ErrorBuilder:
//
//	err := errors.StorageError("store render unit").
//		Wrap(cause).
//		WithContext("hash", hash).
//		Build()
//
// Callers inspect errors with AsClassified and HasCategory. Retryable sink
// failures are reported as transient in the compile report, and the CLI
// adapter maps categories to process exit codes.
package errors
