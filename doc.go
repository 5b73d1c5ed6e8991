// Knowledg-RAG - Hybrid Retrieval and Reasoning over Document Corpora
//
// Knowledg-RAG ingests documents into a knowledge graph plus a vector
// index, then answers questions with an agentic loop that plans
// retrievals, judges the gathered evidence and synthesizes cited
// answers, keeping per-thread conversation history.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/fahadazizz/knowledg-rag
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/fahadazizz/knowledg-rag/rag/engine"
//		"github.com/fahadazizz/knowledg-rag/rag/extract"
//		"github.com/fahadazizz/knowledg-rag/rag/ingest"
//		"github.com/fahadazizz/knowledg-rag/rag/llm"
//		"github.com/fahadazizz/knowledg-rag/rag/retriever"
//		"github.com/fahadazizz/knowledg-rag/rag/store"
//		"github.com/fahadazizz/knowledg-rag/session"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		// Capabilities: any OpenAI-compatible endpoint works.
//		client := llm.NewOpenAIClient("api-key", "")
//
//		// Stores: in-memory here, FalkorDB and pgvector for production.
//		graphStore := store.NewMemoryGraphStore()
//		vectorStore := store.NewMemoryVectorStore()
//
//		// Ingest a document: clean, chunk, extract, embed, index.
//		pipeline := ingest.NewPipeline(
//			extract.NewExtractor(client), client, graphStore, vectorStore)
//		if _, err := pipeline.Ingest(ctx, "handbook", "Acme Corp produces the Widget."); err != nil {
//			panic(err)
//		}
//
//		// Answer questions with the planner loop.
//		planner, err := engine.NewPlanner(
//			engine.NewLLMPolicy(client, nil),
//			retriever.NewVectorRetriever(client, vectorStore),
//			retriever.NewGraphRetriever(graphStore),
//			engine.NewSynthesizer(client),
//		)
//		if err != nil {
//			panic(err)
//		}
//
//		eng := engine.NewEngine(planner, session.NewMemoryStore())
//		turn, err := eng.Answer(ctx, "thread-1", "What does Acme produce?")
//		if err != nil {
//			panic(err)
//		}
//		fmt.Println(turn.Answer)
//	}
//
// # Packages
//
//   - graph: the state-machine runtime the planner is built on, with
//     conditional edges, parallel steps and retry/timeout wrappers
//   - rag: core domain types, capability interfaces and error taxonomy
//   - rag/llm: OpenAI-compatible and langchaingo capability adapters
//   - rag/loader: text, HTML and Markdown document loaders
//   - rag/splitter: text cleaning and offset-preserving window chunking
//   - rag/extract: LLM entity/relation extraction with fixed vocabularies
//   - rag/store: graph stores (in-memory, FalkorDB) and vector stores
//     (in-memory, Postgres/pgvector)
//   - rag/ingest: the ingestion pipeline with fingerprint idempotence
//   - rag/retriever: vector and graph-traversal retrieval into evidence
//   - rag/engine: planner state machine, sufficiency policy, synthesizer
//     and the turn engine
//   - session: per-thread history stores (in-memory, Redis, SQLite)
//   - log: the logging facade backed by kataras/golog
package knowledgrag
