// Package errors provides structured error types for the bootstrap loader.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the subject (property, module or connector name), the
// offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindIncompleteTable).
//		Subject("locale").
//		Value("fr").
//		Detail("no permutation below %v", path).
//		Build()
//
// Two failures carry their own types because callers branch on their payload:
//
//	*PropertyError    a provider produced a value outside the property's legal set
//	*ConnectionError  a discovered connector refused the code server connection
//
// Plugin absence, unexpected disconnects and bad meta configuration are plain
// *Error values with dedicated kinds; use the Is* predicates to classify them.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
