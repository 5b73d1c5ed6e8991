package rag

import "errors"

var (
	// ErrNoChunks is returned when ingestion produces zero chunks from a document.
	ErrNoChunks = errors.New("ingestion produced zero chunks")

	// ErrExtraction marks a per-chunk extraction failure. Ingestion absorbs
	// it and reports the chunk as skipped.
	ErrExtraction = errors.New("entity extraction failed")

	// ErrRetrieval is returned when a store is unreachable after retries.
	// Fatal to the turn; no partial turn is recorded.
	ErrRetrieval = errors.New("retrieval store unavailable")

	// ErrSynthesis is returned when the generation capability fails after
	// retries. Fatal to the turn.
	ErrSynthesis = errors.New("answer generation failed")

	// ErrIterationCap marks that the planner hit its iteration cap. Not
	// fatal: the turn proceeds to synthesis with the evidence at hand.
	ErrIterationCap = errors.New("planner iteration cap reached")
)
