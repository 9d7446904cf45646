package services

import "errors"

// Failure taxonomy for the retrieval/generation pipeline. Callers check with
// errors.Is; wrap with fmt.Errorf("%w: ...") to add context.
var (
	// ErrNoCorpus means the agent has zero documents. This is an expected
	// steady state for a fresh agent, not a fault.
	ErrNoCorpus = errors.New("agent has no documents")

	// ErrRetrievalUnavailable means the vector store could not be reached.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationUnavailable means the completion API call failed (timeout,
	// quota, malformed response). Distinct from the model answering that it
	// does not know.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrMalformedEvaluation means a structured LLM output could not be
	// parsed. Loops substitute a conservative default and continue.
	ErrMalformedEvaluation = errors.New("malformed evaluation output")

	// ErrInvalidRequest means the request was rejected before any outbound
	// call was made.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAgentNotFound means no active agent row matches the identifier.
	ErrAgentNotFound = errors.New("agent not found")
)
